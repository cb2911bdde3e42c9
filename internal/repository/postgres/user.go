package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

const userColumns = `id, username, email, first_name, last_name, COALESCE(github_id, 0),
	avatar_url, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.GitHubID, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func nullGitHubID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return createUser(ctx, s.pool, user)
}

func createUser(ctx context.Context, db DBTX, user *model.User) error {
	ts := now()
	id := xid.New().String()

	_, err := db.Exec(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, github_id,
		                    avatar_url, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, user.Username, user.Email, user.FirstName, user.LastName,
		nullGitHubID(user.GitHubID), user.AvatarURL, user.PasswordHash, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return handlePostgresError(ctx, "creating user", err)
	}

	user.ID = id
	user.CreatedAt = ts
	user.UpdatedAt = ts
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	ts := now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET username = $1, email = $2, first_name = $3, last_name = $4, updated_at = $5
		 WHERE id = $6`,
		user.Username, user.Email, user.FirstName, user.LastName, ts, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return handlePostgresError(ctx, "updating user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = ts
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, handlePostgresError(ctx, "getting user", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if isNoRows(err) {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, handlePostgresError(ctx, "getting user", err)
	}
	return u, nil
}

// UpsertGitHubUser mirrors the sqlite backend: an existing link keeps its ID
// and username, a new one takes the GitHub login (suffixed on collision).
func (s *Store) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	return s.inTx(ctx, "upserting github user", func(tx pgx.Tx) error {
		existing, err := scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = $1 FOR UPDATE`, user.GitHubID))
		switch {
		case err == nil:
			ts := now()
			if _, err := tx.Exec(ctx,
				`UPDATE users SET email = $1, avatar_url = $2, updated_at = $3 WHERE id = $4`,
				user.Email, user.AvatarURL, ts, existing.ID,
			); err != nil {
				return handlePostgresError(ctx, "updating github user", err)
			}
			existing.Email = user.Email
			existing.AvatarURL = user.AvatarURL
			existing.UpdatedAt = ts
			*user = *existing
			return nil
		case !isNoRows(err):
			return handlePostgresError(ctx, "looking up github user", err)
		}

		var taken bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, user.Username,
		).Scan(&taken); err != nil {
			return handlePostgresError(ctx, "checking username", err)
		}
		if taken {
			user.Username = fmt.Sprintf("%s-%d", user.Username, user.GitHubID)
		}
		return createUser(ctx, tx, user)
	})
}
