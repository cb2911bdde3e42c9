package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

// ensureTag inserts the tag unless its slug exists, then reads back the
// stored row. The first spelling of a name wins; later spellings that
// slugify the same resolve to it.
func ensureTag(ctx context.Context, q querier, name, slug string) (*model.Tag, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug) VALUES (?, ?, ?)
		 ON CONFLICT(slug) DO NOTHING`,
		xid.New().String(), name, slug,
	); err != nil {
		return nil, storeErr(ctx, "creating tag", err)
	}
	return tagBySlug(ctx, q, slug)
}

func (db *DB) GetTagBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	return tagBySlug(ctx, db.conn, slug)
}

func tagBySlug(ctx context.Context, q querier, slug string) (*model.Tag, error) {
	var t model.Tag
	err := q.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE slug = ?`, slug,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("tag", slug)
	}
	if err != nil {
		return nil, storeErr(ctx, "getting tag", err)
	}
	return &t, nil
}

func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, slug FROM tags ORDER BY name COLLATE NOCASE, slug`)
	if err != nil {
		return nil, storeErr(ctx, "listing tags", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, storeErr(ctx, "scanning tag", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterating tags", err)
	}
	return tags, nil
}

// loadTags fills in the Tags of each post with one query. Tags per post are
// ordered by name.
func loadTags(ctx context.Context, q querier, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]any, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Tags = []model.Tag{}
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf(
		`SELECT pt.post_id, t.id, t.name, t.slug
		 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id IN (%s)
		 ORDER BY t.name COLLATE NOCASE, t.slug`, placeholders(len(ids))),
		ids...,
	)
	if err != nil {
		return storeErr(ctx, "loading tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var t model.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return storeErr(ctx, "scanning tag", err)
		}
		i := index[postID]
		posts[i].Tags = append(posts[i].Tags, t)
	}
	if err := rows.Err(); err != nil {
		return storeErr(ctx, "iterating tags", err)
	}
	return nil
}

// linkTags replaces the tag set of a post. A tag without an ID is found or
// created by slug inside the same transaction, and tags[i] is overwritten
// with the stored row.
func linkTags(ctx context.Context, tx *sql.Tx, postID string, tags []model.Tag) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return storeErr(ctx, "unlinking tags", err)
	}
	for i, t := range tags {
		if strings.TrimSpace(t.ID) == "" {
			if strings.TrimSpace(t.Slug) == "" {
				return apperror.ValidationFailed("tags", fmt.Sprintf("tag %q has no slug", t.Name))
			}
			stored, err := ensureTag(ctx, tx, t.Name, t.Slug)
			if err != nil {
				return err
			}
			tags[i], t = *stored, *stored
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`,
			postID, t.ID,
		); err != nil {
			return storeErr(ctx, "linking tag", err)
		}
	}
	return nil
}
