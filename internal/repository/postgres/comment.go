package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

const commentSelect = `SELECT c.id, c.post_id, c.content, c.author_id, COALESCE(u.username, ''),
	c.created_at, c.updated_at
	FROM comments c LEFT JOIN users u ON u.id = c.author_id`

func scanComment(row pgx.Row) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorName, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateComment locks the parent post row so a concurrent DeletePost cannot
// slip between the existence check and the insert.
func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	id := xid.New().String()
	ts := comment.CreatedAt.UTC()
	if comment.CreatedAt.IsZero() {
		ts = now()
	}

	err := s.inTx(ctx, "creating comment", func(tx pgx.Tx) error {
		var postID string
		err := tx.QueryRow(ctx, `SELECT id FROM posts WHERE id = $1 FOR SHARE`, comment.PostID).Scan(&postID)
		if isNoRows(err) {
			return apperror.NotFound("post", comment.PostID)
		}
		if err != nil {
			return handlePostgresError(ctx, "creating comment", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO comments (id, post_id, author_id, content, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, comment.PostID, comment.AuthorID, comment.Content, ts, ts,
		); err != nil {
			return handlePostgresError(ctx, "creating comment", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	comment.ID = id
	comment.CreatedAt = ts
	comment.UpdatedAt = ts
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if isNoRows(err) {
		return nil, apperror.NotFound("comment", id)
	}
	if err != nil {
		return nil, handlePostgresError(ctx, "getting comment", err)
	}
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, comment *model.Comment) error {
	ts := now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET content = $1, updated_at = $2 WHERE id = $3`,
		comment.Content, ts, comment.ID,
	)
	if err != nil {
		return handlePostgresError(ctx, "updating comment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("comment", comment.ID)
	}
	comment.UpdatedAt = ts
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError(ctx, "deleting comment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := s.pool.Query(ctx,
		commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		return nil, handlePostgresError(ctx, "listing comments", err)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Comment, error) {
		return scanComment(row)
	})
	if err != nil {
		return nil, handlePostgresError(ctx, "listing comments", err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}
