package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
)

func TestMemoryWriterMergesFields(t *testing.T) {
	w := NewMemoryWriter()
	ctx := context.Background()

	if err := w.Upsert(ctx, "labs", "issue-1", map[string]interface{}{"title": "A", "likes": 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Upsert(ctx, "labs", "issue-1", map[string]interface{}{"title": "B", "status": "published"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, ok := w.Get("labs", "issue-1")
	if !ok {
		t.Fatal("expected stored document")
	}
	if doc["title"] != "B" {
		t.Fatalf("expected title overwritten, got %v", doc["title"])
	}
	if doc["likes"] != 4 {
		t.Fatalf("expected untouched field to survive, got %v", doc["likes"])
	}
	if doc["status"] != "published" {
		t.Fatalf("expected new field added, got %v", doc["status"])
	}
	if w.Writes != 2 {
		t.Fatalf("expected 2 writes, got %d", w.Writes)
	}
}

func TestMemoryWriterReturnsConfiguredError(t *testing.T) {
	w := NewMemoryWriter()
	w.Err = errors.New("unavailable")

	if err := w.Upsert(context.Background(), "labs", "issue-1", map[string]interface{}{"a": 1}); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := w.Get("labs", "issue-1"); ok {
		t.Fatal("nothing should be stored on failure")
	}
}

func TestHashFieldsEncodesValues(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	set, del := hashFields(map[string]interface{}{
		"title":          "Buffer Basics",
		"pointsReward":   10,
		"approvedAt":     ts,
		"extraNotes":     nil,
		"zzz":            nil,
		"githubIssueUrl": "https://example.com",
	})

	if set["title"] != "Buffer Basics" {
		t.Fatalf("unexpected title %v", set["title"])
	}
	if set["pointsReward"] != "10" {
		t.Fatalf("unexpected points %v", set["pointsReward"])
	}
	if set["approvedAt"] != "2024-05-01T08:00:00Z" {
		t.Fatalf("unexpected timestamp %v", set["approvedAt"])
	}
	if _, ok := set["extraNotes"]; ok {
		t.Fatal("null fields must not be written")
	}
	if len(del) != 2 || del[0] != "extraNotes" || del[1] != "zzz" {
		t.Fatalf("unexpected deletions %v", del)
	}
}

func TestRedisKey(t *testing.T) {
	if got := RedisKey("labs", "issue-7"); got != "labs:issue-7" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestMergeOnConflictTargetsDocumentKey(t *testing.T) {
	oc := mergeOnConflict(time.Now())
	if len(oc.Columns) != 2 || oc.Columns[0].Name != "collection" || oc.Columns[1].Name != "id" {
		t.Fatalf("unexpected conflict columns %+v", oc.Columns)
	}
	if len(oc.DoUpdates) != 2 {
		t.Fatalf("expected payload and updated_at assignments, got %d", len(oc.DoUpdates))
	}
	if (Document{}).TableName() != "lab_documents" {
		t.Fatal("unexpected table name")
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	w, err := Open(context.Background(), &config.Config{StoreDriver: DriverMemory}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.(*MemoryWriter); !ok {
		t.Fatalf("expected memory writer, got %T", w)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "cassandra"}, nil)
	if !failure.IsKind(err, failure.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOpenFirestoreWithoutCredentials(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: config.DriverFirestore}, nil)
	if !failure.IsKind(err, failure.KindCredential) {
		t.Fatalf("expected credential error, got %v", err)
	}
}
