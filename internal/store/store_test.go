package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"imgproxy/internal/clock"
	"imgproxy/internal/models"
)

var testEpoch = time.Unix(1_700_000_000, 0).UTC()

// testStore creates a temporary store driven by a fake clock.
func testStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(testEpoch)
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path, WithClock(fake))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, fake
}

func testHash(seed string) string {
	return strings.Repeat(seed, 64/len(seed))
}

func testRecord(hash, name string) models.BlobRecord {
	return models.BlobRecord{
		Hash:         hash,
		StoragePath:  "sha256/" + hash[0:2] + "/" + hash[2:4] + "/" + hash,
		OriginalName: name,
		MediaType:    models.MediaTypePNG,
		Width:        4,
		Height:       3,
		FileSize:     128,
	}
}

func TestPutAndGet(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()
	hash := testHash("ab")

	rec, created, err := st.Put(ctx, testRecord(hash, "cat.png"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !created {
		t.Fatal("expected first put to create")
	}
	if !rec.CreatedAt.Equal(testEpoch) || !rec.UpdatedAt.Equal(testEpoch) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}
	if rec.AccessCount != 0 {
		t.Fatalf("expected access_count 0, got %d", rec.AccessCount)
	}

	got, err := st.Get(ctx, strings.ToUpper(hash))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.OriginalName != "cat.png" || got.Width != 4 || got.Height != 3 || got.FileSize != 128 {
		t.Fatalf("unexpected record: %#v", got)
	}

	missing, err := st.Get(ctx, testHash("cd"))
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing hash, got %#v", missing)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	st, fake := testStore(t)
	ctx := context.Background()
	hash := testHash("ab")

	first, _, err := st.Put(ctx, testRecord(hash, "first.png"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}

	fake.Advance(time.Hour)
	second, created, err := st.Put(ctx, testRecord(hash, "second.png"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if created {
		t.Fatal("expected second put to be a no-op")
	}
	if second.OriginalName != "first.png" {
		t.Fatalf("expected surviving row name first.png, got %q", second.OriginalName)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRecords != 1 {
		t.Fatalf("expected 1 record, got %d", stats.TotalRecords)
	}
}

func TestPutConcurrentSameHash(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()
	hash := testHash("ef")

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, created, err := st.Put(ctx, testRecord(hash, "race.png"))
			if err != nil {
				errs <- err
				return
			}
			if rec.AccessCount != 0 {
				errs <- errors.New("unexpected access count on put")
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent put: %v", err)
	}
	if createdCount != 1 {
		t.Fatalf("expected exactly one creating put, got %d", createdCount)
	}
}

func TestPutRejectsInvalidRecord(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  models.BlobRecord
	}{
		{name: "bad hash", rec: models.BlobRecord{Hash: "nothex", StoragePath: "x"}},
		{name: "missing path", rec: models.BlobRecord{Hash: testHash("ab")}},
		{name: "negative size", rec: models.BlobRecord{Hash: testHash("ab"), StoragePath: "x", FileSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := st.Put(ctx, tt.rec); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRecordAccess(t *testing.T) {
	st, fake := testStore(t)
	ctx := context.Background()
	hash := testHash("ab")

	if _, _, err := st.Put(ctx, testRecord(hash, "cat.png")); err != nil {
		t.Fatalf("put: %v", err)
	}

	fake.Advance(5 * time.Second)
	rec, err := st.RecordAccess(ctx, hash)
	if err != nil {
		t.Fatalf("record access: %v", err)
	}
	if rec.AccessCount != 1 {
		t.Fatalf("expected access_count 1, got %d", rec.AccessCount)
	}
	if !rec.UpdatedAt.Equal(testEpoch.Add(5 * time.Second)) {
		t.Fatalf("expected updated_at to advance, got %v", rec.UpdatedAt)
	}
	if !rec.CreatedAt.Equal(testEpoch) {
		t.Fatalf("created_at must not change, got %v", rec.CreatedAt)
	}

	if _, err := st.RecordAccess(ctx, testHash("cd")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAccessConcurrent(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()
	hash := testHash("ab")

	if _, _, err := st.Put(ctx, testRecord(hash, "cat.png")); err != nil {
		t.Fatalf("put: %v", err)
	}

	const readers = 20
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.RecordAccess(ctx, hash); err != nil {
				t.Errorf("record access: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := st.Get(ctx, hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessCount != readers {
		t.Fatalf("expected access_count %d, got %d", readers, got.AccessCount)
	}
}

func TestListExpired(t *testing.T) {
	st, fake := testStore(t)
	ctx := context.Background()
	oldHash := testHash("aa")
	freshHash := testHash("bb")

	if _, _, err := st.Put(ctx, testRecord(oldHash, "old.png")); err != nil {
		t.Fatalf("put old: %v", err)
	}
	fake.Advance(90 * time.Second)
	if _, _, err := st.Put(ctx, testRecord(freshHash, "fresh.png")); err != nil {
		t.Fatalf("put fresh: %v", err)
	}

	// old was created at now-100, fresh at now-10.
	now := testEpoch.Add(100 * time.Second)
	expired, err := st.ListExpired(ctx, 50*time.Second, now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].Hash != oldHash {
		t.Fatalf("expected only old record, got %#v", expired)
	}

	boundary, err := st.ListExpired(ctx, 100*time.Second, now)
	if err != nil {
		t.Fatalf("list expired at boundary: %v", err)
	}
	if len(boundary) != 0 {
		t.Fatalf("record exactly at retention must not be expired, got %d", len(boundary))
	}
}

func TestDeleteMany(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()
	hashes := []string{testHash("aa"), testHash("bb"), testHash("cc")}
	for _, hash := range hashes {
		if _, _, err := st.Put(ctx, testRecord(hash, "x.png")); err != nil {
			t.Fatalf("put %s: %v", hash, err)
		}
	}

	n, err := st.DeleteMany(ctx, []string{hashes[0], hashes[1], testHash("dd")})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	n, err = st.DeleteMany(ctx, []string{hashes[0]})
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected repeat delete to be a no-op, got %d", n)
	}

	if n, err := st.DeleteMany(ctx, nil); err != nil || n != 0 {
		t.Fatalf("expected empty delete to be a no-op, got n=%d err=%v", n, err)
	}

	left, err := st.Get(ctx, hashes[2])
	if err != nil || left == nil {
		t.Fatalf("expected untouched record to remain, got %#v err=%v", left, err)
	}
}

func TestReplaceExpired(t *testing.T) {
	st, fake := testStore(t)
	ctx := context.Background()
	hash := testHash("ab")
	retention := time.Minute

	if _, _, err := st.Put(ctx, testRecord(hash, "first.png")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := st.RecordAccess(ctx, hash); err != nil {
		t.Fatalf("record access: %v", err)
	}

	live, created, err := st.ReplaceExpired(ctx, testRecord(hash, "second.png"), retention)
	if err != nil {
		t.Fatalf("replace live: %v", err)
	}
	if created || live.OriginalName != "first.png" || live.AccessCount != 1 {
		t.Fatalf("live row must survive: created=%v rec=%#v", created, live)
	}

	fake.Advance(2 * time.Minute)
	fresh, created, err := st.ReplaceExpired(ctx, testRecord(hash, "second.png"), retention)
	if err != nil {
		t.Fatalf("replace expired: %v", err)
	}
	if !created {
		t.Fatal("expected expired row to be replaced")
	}
	if fresh.OriginalName != "second.png" || fresh.AccessCount != 0 {
		t.Fatalf("unexpected replacement: %#v", fresh)
	}
	if !fresh.CreatedAt.Equal(testEpoch.Add(2 * time.Minute)) {
		t.Fatalf("expected new created_at, got %v", fresh.CreatedAt)
	}
}

func TestStatsAndSnapshot(t *testing.T) {
	st, fake := testStore(t)
	ctx := context.Background()

	empty, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.TotalRecords != 0 || empty.NewestRecord != nil {
		t.Fatalf("unexpected empty stats: %#v", empty)
	}
	if empty.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", empty.SchemaVersion)
	}

	if _, _, err := st.Put(ctx, testRecord(testHash("aa"), "a.png")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	fake.Advance(time.Second)
	if _, _, err := st.Put(ctx, testRecord(testHash("bb"), "b.png")); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := st.RecordAccess(ctx, testHash("aa")); err != nil {
		t.Fatalf("record access: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRecords != 2 || stats.TotalAccesses != 1 || stats.TotalBytes != 256 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if stats.NewestRecord == nil || stats.NewestRecord.Name != "b.png" {
		t.Fatalf("expected newest b.png, got %#v", stats.NewestRecord)
	}
	if stats.DBFileSizeBytes <= 0 {
		t.Fatalf("expected positive db size, got %d", stats.DBFileSizeBytes)
	}

	dst := filepath.Join(t.TempDir(), "snap", "copy.db")
	if err := st.Snapshot(ctx, dst); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := st.Snapshot(ctx, dst); err == nil {
		t.Fatal("expected error when snapshot target exists")
	}

	copyStore, err := Open(dst)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer copyStore.Close()
	got, err := copyStore.Get(ctx, testHash("bb"))
	if err != nil || got == nil {
		t.Fatalf("expected snapshot to contain b, got %#v err=%v", got, err)
	}
}
