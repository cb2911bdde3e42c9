package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

// ensureTag inserts the tag unless its slug exists and returns the stored
// row. ON CONFLICT makes concurrent callers converge on one row.
func ensureTag(ctx context.Context, db DBTX, name, slug string) (*model.Tag, error) {
	if _, err := db.Exec(ctx,
		`INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO NOTHING`,
		xid.New().String(), name, slug,
	); err != nil {
		return nil, handlePostgresError(ctx, "creating tag", err)
	}
	return tagBySlug(ctx, db, slug)
}

func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	return tagBySlug(ctx, s.pool, slug)
}

func tagBySlug(ctx context.Context, db DBTX, slug string) (*model.Tag, error) {
	var t model.Tag
	err := db.QueryRow(ctx, `SELECT id, name, slug FROM tags WHERE slug = $1`, slug).
		Scan(&t.ID, &t.Name, &t.Slug)
	if isNoRows(err) {
		return nil, apperror.NotFound("tag", slug)
	}
	if err != nil {
		return nil, handlePostgresError(ctx, "getting tag", err)
	}
	return &t, nil
}

func (s *Store) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, slug FROM tags ORDER BY lower(name), slug`)
	if err != nil {
		return nil, handlePostgresError(ctx, "listing tags", err)
	}
	tags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Tag, error) {
		var t model.Tag
		err := row.Scan(&t.ID, &t.Name, &t.Slug)
		return t, err
	})
	if err != nil {
		return nil, handlePostgresError(ctx, "listing tags", err)
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return tags, nil
}

func loadTags(ctx context.Context, db DBTX, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Tags = []model.Tag{}
	}

	rows, err := db.Query(ctx,
		`SELECT pt.post_id, t.id, t.name, t.slug
		 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id = ANY($1)
		 ORDER BY lower(t.name), t.slug`, ids)
	if err != nil {
		return handlePostgresError(ctx, "loading tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var t model.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return handlePostgresError(ctx, "scanning tag", err)
		}
		i := index[postID]
		posts[i].Tags = append(posts[i].Tags, t)
	}
	if err := rows.Err(); err != nil {
		return handlePostgresError(ctx, "loading tags", err)
	}
	return nil
}

// linkTags replaces the tag set of a post, creating tags that carry no ID
// inside tx.
func linkTags(ctx context.Context, tx pgx.Tx, postID string, tags []model.Tag) error {
	if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return handlePostgresError(ctx, "unlinking tags", err)
	}
	for i, t := range tags {
		if t.ID == "" {
			if t.Slug == "" {
				return apperror.ValidationFailed("tags", fmt.Sprintf("tag %q has no slug", t.Name))
			}
			stored, err := ensureTag(ctx, tx, t.Name, t.Slug)
			if err != nil {
				return err
			}
			tags[i], t = *stored, *stored
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, t.ID,
		); err != nil {
			return handlePostgresError(ctx, "linking tag", err)
		}
	}
	return nil
}
