package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

const commentSelect = `SELECT c.id, c.post_id, c.content, c.author_id, COALESCE(u.username, ''),
	c.created_at, c.updated_at
	FROM comments c LEFT JOIN users u ON u.id = c.author_id`

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorName,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment checks the parent post and inserts in one transaction, so a
// comment never lands on a post deleted in between.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	id := xid.New().String()
	ts := comment.CreatedAt.UTC()
	if comment.CreatedAt.IsZero() {
		ts = now()
	}

	err := db.withTx(ctx, "creating comment", func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM posts WHERE id = ?`, comment.PostID,
		).Scan(&exists); err != nil {
			return storeErr(ctx, "creating comment", err)
		}
		if exists == 0 {
			return apperror.NotFound("post", comment.PostID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, post_id, author_id, content, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, comment.PostID, comment.AuthorID, comment.Content, ts, ts,
		); err != nil {
			return storeErr(ctx, "creating comment", err)
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

func (db *DB) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(db.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("comment", id)
	}
	if err != nil {
		return nil, storeErr(ctx, "getting comment", err)
	}
	return c, nil
}

// UpdateComment saves new content. post_id, author_id and created_at stay.
func (db *DB) UpdateComment(ctx context.Context, comment *model.Comment) error {
	ts := now()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		comment.Content, ts, comment.ID,
	)
	if err != nil {
		return storeErr(ctx, "updating comment", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(ctx, "updating comment", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", comment.ID)
	}
	comment.UpdatedAt = ts
	return nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return storeErr(ctx, "deleting comment", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(ctx, "deleting comment", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

func (db *DB) ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.post_id = ? ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		return nil, storeErr(ctx, "listing comments", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, storeErr(ctx, "scanning comment", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterating comments", err)
	}
	return comments, nil
}
