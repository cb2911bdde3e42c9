package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

const postSelect = `SELECT p.id, p.title, p.content, p.author_id, COALESCE(u.username, ''), p.created_at
	FROM posts p LEFT JOIN users u ON u.id = p.author_id`

// CreatePost inserts the post and its tag links in one transaction. ID is
// always generated; CreatedAt is kept when the caller set it.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	id := xid.New().String()
	created := post.CreatedAt.UTC()
	if post.CreatedAt.IsZero() {
		created = now()
	}

	err := db.withTx(ctx, "creating post", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posts (id, title, content, author_id, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, post.Title, post.Content, post.AuthorID, created,
		); err != nil {
			return storeErr(ctx, "creating post", err)
		}
		return linkTags(ctx, tx, id, post.Tags)
	})
	if err != nil {
		return err
	}

	post.ID = id
	post.CreatedAt = created
	return nil
}

func (db *DB) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, storeErr(ctx, "getting post", err)
	}

	posts := []model.Post{p}
	if err := loadTags(ctx, db.conn, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// UpdatePost rewrites title, content and the tag set. author_id and
// created_at are not part of the statement.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	return db.withTx(ctx, "updating post", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE posts SET title = ?, content = ? WHERE id = ?`,
			post.Title, post.Content, post.ID,
		)
		if err != nil {
			return storeErr(ctx, "updating post", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return storeErr(ctx, "updating post", err)
		}
		if n == 0 {
			return apperror.NotFound("post", post.ID)
		}
		return linkTags(ctx, tx, post.ID, post.Tags)
	})
}

// DeletePost removes the post with its comments and tag links. The explicit
// deletes make the cascade independent of the foreign_keys pragma.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	return db.withTx(ctx, "deleting post", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
			return storeErr(ctx, "deleting comments", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
			return storeErr(ctx, "unlinking tags", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return storeErr(ctx, "deleting post", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return storeErr(ctx, "deleting post", err)
		}
		if n == 0 {
			return apperror.NotFound("post", id)
		}
		return nil
	})
}

func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	return db.listPosts(ctx, "listing posts", "", nil, opts)
}

// ListPostsByTagSlug returns posts carrying the tag. The EXISTS filter keeps
// each post to one row.
func (db *DB) ListPostsByTagSlug(ctx context.Context, slug string, opts repository.ListOptions) ([]model.Post, error) {
	return db.listPosts(ctx, "listing posts by tag",
		`WHERE EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = ?)`,
		[]any{slug}, opts)
}

// SearchPosts matches title, content or tag name. Both sides go through
// casefold, so the match ignores case beyond ASCII.
func (db *DB) SearchPosts(ctx context.Context, query string, opts repository.ListOptions) ([]model.Post, error) {
	pattern := likePattern(foldCase(query))
	return db.listPosts(ctx, "searching posts",
		`WHERE casefold(p.title) LIKE ? ESCAPE '\'
		    OR casefold(p.content) LIKE ? ESCAPE '\'
		    OR EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND casefold(t.name) LIKE ? ESCAPE '\')`,
		[]any{pattern, pattern, pattern}, opts)
}

func (db *DB) listPosts(ctx context.Context, op, where string, args []any, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	offset := max(opts.Offset, 0)

	q := fmt.Sprintf(`%s %s ORDER BY %s LIMIT ? OFFSET ?`, postSelect, where, orderClause(opts.Order))
	rows, err := db.conn.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, storeErr(ctx, op, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName, &p.CreatedAt); err != nil {
			return nil, storeErr(ctx, op, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, op, err)
	}
	// rows must be closed before the next query can use the single connection.
	rows.Close()

	if err := loadTags(ctx, db.conn, posts); err != nil {
		return nil, err
	}
	return posts, nil
}
