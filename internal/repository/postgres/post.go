package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"
	"golang.org/x/text/unicode/norm"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

const postSelect = `SELECT p.id, p.title, p.content, p.author_id, COALESCE(u.username, ''), p.created_at
	FROM posts p LEFT JOIN users u ON u.id = p.author_id`

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	id := xid.New().String()
	created := post.CreatedAt.UTC()
	if post.CreatedAt.IsZero() {
		created = now()
	}

	err := s.inTx(ctx, "creating post", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO posts (id, title, content, author_id, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, post.Title, post.Content, post.AuthorID, created,
		); err != nil {
			return handlePostgresError(ctx, "creating post", err)
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

func (s *Store) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := s.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id).
		Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName, &p.CreatedAt)
	if isNoRows(err) {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, handlePostgresError(ctx, "getting post", err)
	}

	posts := []model.Post{p}
	if err := loadTags(ctx, s.pool, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	return s.inTx(ctx, "updating post", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE posts SET title = $1, content = $2 WHERE id = $3`,
			post.Title, post.Content, post.ID,
		)
		if err != nil {
			return handlePostgresError(ctx, "updating post", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NotFound("post", post.ID)
		}
		return linkTags(ctx, tx, post.ID, post.Tags)
	})
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.inTx(ctx, "deleting post", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
			return handlePostgresError(ctx, "deleting comments", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, id); err != nil {
			return handlePostgresError(ctx, "unlinking tags", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return handlePostgresError(ctx, "deleting post", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NotFound("post", id)
		}
		return nil
	})
}

func (s *Store) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	return s.listPosts(ctx, "listing posts", "", nil, opts)
}

func (s *Store) ListPostsByTagSlug(ctx context.Context, slug string, opts repository.ListOptions) ([]model.Post, error) {
	return s.listPosts(ctx, "listing posts by tag",
		`WHERE EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = $1)`,
		[]any{slug}, opts)
}

// SearchPosts relies on ILIKE for Unicode case folding. The query is composed
// to NFC to match text stored from NFC input.
func (s *Store) SearchPosts(ctx context.Context, query string, opts repository.ListOptions) ([]model.Post, error) {
	return s.listPosts(ctx, "searching posts",
		`WHERE p.title ILIKE $1 ESCAPE '\'
		    OR p.content ILIKE $1 ESCAPE '\'
		    OR EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.name ILIKE $1 ESCAPE '\')`,
		[]any{likePattern(norm.NFC.String(query))}, opts)
}

// listPosts appends LIMIT and OFFSET as the next two placeholders after
// args. A NULL limit means no limit.
func (s *Store) listPosts(ctx context.Context, op, where string, args []any, opts repository.ListOptions) ([]model.Post, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	offset := max(opts.Offset, 0)

	q := fmt.Sprintf(`%s %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		postSelect, where, orderClause(opts.Order), len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, handlePostgresError(ctx, op, err)
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Post, error) {
		var p model.Post
		err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorName, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, handlePostgresError(ctx, op, err)
	}
	if posts == nil {
		posts = []model.Post{}
	}

	if err := loadTags(ctx, s.pool, posts); err != nil {
		return nil, err
	}
	return posts, nil
}
