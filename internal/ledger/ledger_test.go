package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestInMemoryDSN(t *testing.T) {
	db, err := Open("file:ledger-test-mem?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() on memory DSN: %v", err)
	}
	if err := db.Record(context.Background(), Send{TempID: "temp_mem", ChatID: "5511999999999", Body: "hi"}); err != nil {
		t.Fatal(err)
	}
}

func TestSendLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Record(ctx, Send{TempID: "temp_1", ChatID: "5511999999999", Body: "hello"}); err != nil {
		t.Fatal(err)
	}
	ok, err := db.MarkSent(ctx, "temp_1", "srv-1")
	if err != nil || !ok {
		t.Fatalf("MarkSent() = %v, %v", ok, err)
	}

	s, err := db.Get(ctx, "temp_1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != SendSent || s.ServerID != "srv-1" {
		t.Errorf("send = %+v, want sent with srv-1", s)
	}

	// A sent row can no longer fail.
	ok, err = db.MarkFailed(ctx, "temp_1", "timeout")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("MarkFailed on a sent row should not apply")
	}
}

func TestTimeoutThenLateAck(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Record(ctx, Send{TempID: "temp_2", ChatID: "5511999999999", Body: "slow"}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.MarkFailed(ctx, "temp_2", "send timed out"); !ok {
		t.Fatal("MarkFailed should apply to a pending row")
	}
	if ok, _ := db.MarkSent(ctx, "temp_2", "srv-2"); ok {
		t.Error("MarkSent after failure should not apply")
	}
	if ok, _ := db.MarkLateAck(ctx, "temp_2", "srv-2"); !ok {
		t.Fatal("MarkLateAck should apply to a failed row")
	}

	s, err := db.Get(ctx, "temp_2")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != SendLateAck || s.ServerID != "srv-2" || s.Error != "send timed out" {
		t.Errorf("send = %+v", s)
	}
}

func TestListFailed(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, id := range []string{"temp_a", "temp_b", "temp_c"} {
		if err := db.Record(ctx, Send{TempID: id, ChatID: "5511999999999", Body: id}); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = db.MarkFailed(ctx, "temp_a", "boom")
	_, _ = db.MarkSent(ctx, "temp_b", "srv-b")
	_, _ = db.MarkFailed(ctx, "temp_c", "boom")
	_, _ = db.MarkLateAck(ctx, "temp_c", "srv-c")

	sends, err := db.ListFailed(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sends) != 2 {
		t.Fatalf("got %d failed sends, want 2", len(sends))
	}
	for _, s := range sends {
		if s.TempID == "temp_b" {
			t.Error("sent row listed as failed")
		}
	}
}

func TestGetUnknown(t *testing.T) {
	db := testDB(t)
	if _, err := db.Get(context.Background(), "temp_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}
