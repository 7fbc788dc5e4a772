package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vincentbai/pageview-bridge/internal/models"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	// Create temporary directory for test database
	tmpDir, err := os.MkdirTemp("", "pageview-bridge-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := NewDatabase(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func pageview(ts int64, page string) models.Pageview {
	return models.Pageview{TSUTC: ts, TSISO: "2009-02-13T23:31:30Z", Page: page}
}

func TestNewDatabase(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if db == nil {
		t.Fatal("Expected non-nil database")
	}
	if db.db == nil {
		t.Fatal("Expected non-nil sql.DB")
	}
}

func TestValidatePageview(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tests := []struct {
		name      string
		pageview  models.Pageview
		wantError bool
	}{
		{"valid pageview", pageview(1234567890, "/home"), false},
		{"empty page is recorded as-is", pageview(1234567890, ""), false},
		{"zero timestamp", pageview(0, "/home"), true},
		{"negative timestamp", pageview(-1, "/home"), true},
		{"missing ISO timestamp", models.Pageview{TSUTC: 1234567890, Page: "/home"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.ValidatePageview(tt.pageview)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePageview() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestInsertPageviews(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	pageviews := []models.Pageview{
		pageview(1234567890, "/home"),
		pageview(1234567891, "/about"),
	}

	if err := db.InsertPageviews(pageviews); err != nil {
		t.Fatalf("Failed to insert pageviews: %v", err)
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM pageviews").Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != len(pageviews) {
		t.Errorf("Expected %d pageviews, got %d", len(pageviews), count)
	}
}

func TestInsertPageviewsRollsBackOnInvalid(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	pageviews := []models.Pageview{
		pageview(1234567890, "/home"),
		pageview(0, "/broken"), // Invalid: zero timestamp
	}

	if err := db.InsertPageviews(pageviews); err == nil {
		t.Fatal("Expected error for invalid pageview, got nil")
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM pageviews").Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 pageviews after rollback, got %d", count)
	}
}

func TestInsertPageviewsSpecialCharacters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	page := `/search?q="x';DROP TABLE pageviews;--&lang=日本`
	if err := db.InsertPageviews([]models.Pageview{pageview(1234567890, page)}); err != nil {
		t.Fatalf("Failed to insert pageview: %v", err)
	}

	recent, err := db.RecentPageviews(1)
	if err != nil {
		t.Fatalf("Failed to read pageviews: %v", err)
	}
	if len(recent) != 1 || recent[0].Page != page {
		t.Errorf("Expected page %q to round-trip, got %+v", page, recent)
	}
}

func TestRecentPageviewsNewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for i, page := range []string{"/a", "/b", "/c"} {
		if err := db.InsertPageviews([]models.Pageview{pageview(int64(1000+i), page)}); err != nil {
			t.Fatalf("Failed to insert %s: %v", page, err)
		}
	}

	recent, err := db.RecentPageviews(2)
	if err != nil {
		t.Fatalf("Failed to read pageviews: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 pageviews, got %d", len(recent))
	}
	if recent[0].Page != "/c" || recent[1].Page != "/b" {
		t.Errorf("Unexpected order: %+v", recent)
	}
}

func TestRecentPageviewsEmpty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	recent, err := db.RecentPageviews(0)
	if err != nil {
		t.Fatalf("Failed to read pageviews: %v", err)
	}
	if recent == nil || len(recent) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", recent)
	}
}

func TestPageCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	pageviews := []models.Pageview{
		pageview(1, "/home"),
		pageview(2, "/about"),
		pageview(3, "/home"),
		pageview(4, "/home"),
		pageview(5, "/about"),
		pageview(6, "/contact"),
	}
	if err := db.InsertPageviews(pageviews); err != nil {
		t.Fatalf("Failed to insert pageviews: %v", err)
	}

	counts, err := db.PageCounts()
	if err != nil {
		t.Fatalf("Failed to count pages: %v", err)
	}

	want := []models.PageCount{{Page: "/home", Views: 3}, {Page: "/about", Views: 2}, {Page: "/contact", Views: 1}}
	if len(counts) != len(want) {
		t.Fatalf("Expected %d counts, got %d", len(want), len(counts))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("Count %d: got %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestDatabaseClose(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
}
