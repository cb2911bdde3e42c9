package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

func TestCreateComment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice, "Commented post", 0)

	c := &model.Comment{PostID: post.ID, AuthorID: bob.ID, Content: "nice"}
	if err := db.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() || !c.UpdatedAt.Equal(c.CreatedAt) {
		t.Errorf("CreateComment() did not fill ID/timestamps: %+v", c)
	}

	found, err := db.GetComment(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetComment() error = %v", err)
	}
	if found.AuthorName != "bob" || found.PostID != post.ID || found.Content != "nice" {
		t.Errorf("GetComment() = %+v", found)
	}
}

func TestCreateComment_PostMissing(t *testing.T) {
	db := newTestDB(t)
	bob := createTestUser(t, db, "bob")

	err := db.CreateComment(context.Background(), &model.Comment{PostID: "gone", AuthorID: bob.ID, Content: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreateComment() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateComment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "Commented post", 0)

	c := &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "draft", CreatedAt: base}
	if err := db.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	c.Content = "final"
	if err := db.UpdateComment(ctx, c); err != nil {
		t.Fatalf("UpdateComment() error = %v", err)
	}

	found, err := db.GetComment(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetComment() error = %v", err)
	}
	if found.Content != "final" {
		t.Errorf("Content = %q, want final", found.Content)
	}
	if !found.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, base)
	}
	if !found.UpdatedAt.After(found.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", found.UpdatedAt, found.CreatedAt)
	}

	err = db.UpdateComment(ctx, &model.Comment{ID: "missing", Content: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateComment(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteComment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "Commented post", 0)

	c := &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "bye"}
	if err := db.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if err := db.DeleteComment(ctx, c.ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if err := db.DeleteComment(ctx, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteComment() error = %v, want ErrNotFound", err)
	}
	// The post is untouched.
	if _, err := db.GetPost(ctx, post.ID); err != nil {
		t.Errorf("GetPost() error = %v", err)
	}
}

func TestListCommentsByPost_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, "Commented post", 0)

	for i, content := range []string{"third", "first", "second"} {
		offset := map[int]time.Duration{0: 3, 1: 1, 2: 2}[i]
		c := &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: content,
			CreatedAt: base.Add(offset * time.Minute)}
		if err := db.CreateComment(ctx, c); err != nil {
			t.Fatalf("CreateComment() error = %v", err)
		}
	}

	comments, err := db.ListCommentsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListCommentsByPost() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(comments) != len(want) {
		t.Fatalf("len = %d, want %d", len(comments), len(want))
	}
	for i := range want {
		if comments[i].Content != want[i] {
			t.Errorf("comments[%d] = %q, want %q", i, comments[i].Content, want[i])
		}
	}
}
