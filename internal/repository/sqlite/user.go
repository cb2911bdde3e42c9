package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

const userColumns = `id, username, email, first_name, last_name, COALESCE(github_id, 0),
	avatar_url, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.GitHubID, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// nullGitHubID stores local accounts with a NULL github_id so the UNIQUE
// index only constrains linked accounts.
func nullGitHubID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// CreateUser inserts a new account and fills in its ID and timestamps.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	return createUser(ctx, db.conn, user)
}

func createUser(ctx context.Context, q querier, user *model.User) error {
	ts := now()
	id := xid.New().String()

	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, github_id,
		                    avatar_url, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, user.Username, user.Email, user.FirstName, user.LastName,
		nullGitHubID(user.GitHubID), user.AvatarURL, user.PasswordHash, ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return storeErr(ctx, "creating user", err)
	}

	user.ID = id
	user.CreatedAt = ts
	user.UpdatedAt = ts
	return nil
}

// UpdateUser saves the editable profile fields. A username already taken by
// another account yields a conflict.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	ts := now()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = ?, first_name = ?, last_name = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username, user.Email, user.FirstName, user.LastName, ts, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return storeErr(ctx, "updating user", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(ctx, "updating user", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = ts
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, storeErr(ctx, "getting user", err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, storeErr(ctx, "getting user", err)
	}
	return u, nil
}

// UpsertGitHubUser links a GitHub identity to an account.
//
// An existing link keeps its internal ID and username; only email and avatar
// are refreshed. A new link creates an account named after the GitHub login,
// suffixed with the GitHub ID if a local account already holds that name.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	return db.withTx(ctx, "upserting github user", func(tx *sql.Tx) error {
		existing, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID))
		switch {
		case err == nil:
			ts := now()
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
				user.Email, user.AvatarURL, ts, existing.ID,
			); err != nil {
				return storeErr(ctx, "updating github user", err)
			}
			existing.Email = user.Email
			existing.AvatarURL = user.AvatarURL
			existing.UpdatedAt = ts
			*user = *existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return storeErr(ctx, "looking up github user", err)
		}

		var taken int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE username = ?`, user.Username,
		).Scan(&taken); err != nil {
			return storeErr(ctx, "checking username", err)
		}
		if taken > 0 {
			user.Username = fmt.Sprintf("%s-%d", user.Username, user.GitHubID)
		}
		return createUser(ctx, tx, user)
	})
}
