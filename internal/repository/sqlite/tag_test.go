package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/blog-platform/internal/apperror"
)

func TestEnsureTag_IdempotentBySlug(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := createTestTag(t, db, "My-Tag", "my-tag")
	second, err := ensureTag(ctx, db.conn, "my tag", "my-tag")
	if err != nil {
		t.Fatalf("ensureTag() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second call created a new tag: %q vs %q", second.ID, first.ID)
	}
	if second.Name != "My-Tag" {
		t.Errorf("Name = %q, want first spelling %q", second.Name, "My-Tag")
	}

	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("len(tags) = %d, want 1", len(tags))
	}
}

func TestEnsureTag_Concurrent(t *testing.T) {
	db := newTestDB(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, err := ensureTag(context.Background(), db.conn, "Go", "go")
			errs[i] = err
			if err == nil {
				ids[i] = tag.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("goroutine %d got tag %q, want %q", i, ids[i], ids[0])
		}
	}
}

func TestGetTagBySlug_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetTagBySlug(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTagBySlug() error = %v, want ErrNotFound", err)
	}
}

func TestListTags_OrderedByName(t *testing.T) {
	db := newTestDB(t)
	createTestTag(t, db, "zebra", "zebra")
	createTestTag(t, db, "Apple", "apple")
	createTestTag(t, db, "mango", "mango")

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}

	want := []string{"Apple", "mango", "zebra"}
	if len(tags) != len(want) {
		t.Fatalf("len(tags) = %d, want %d", len(tags), len(want))
	}
	for i, name := range want {
		if tags[i].Name != name {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i].Name, name)
		}
	}
}
