package database

import (
	"database/sql"
	"fmt"

	"github.com/vincentbai/pageview-bridge/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

type Database struct {
	db *sql.DB
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS pageviews(
	  id     INTEGER PRIMARY KEY,
	  ts_utc INTEGER NOT NULL,
	  ts_iso TEXT    NOT NULL,
	  page   TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pageviews_ts   ON pageviews(ts_utc);
	CREATE INDEX IF NOT EXISTS idx_pageviews_page ON pageviews(page);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// ValidatePageview checks the row before insert. The page itself is never
// validated: whatever the application reported is what gets recorded.
func (d *Database) ValidatePageview(pageview models.Pageview) error {
	if pageview.TSUTC <= 0 {
		return fmt.Errorf("timestamp must be positive")
	}
	if pageview.TSISO == "" {
		return fmt.Errorf("ISO timestamp cannot be empty")
	}
	return nil
}

func (d *Database) InsertPageviews(pageviews []models.Pageview) error {
	transaction, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	statement, err := transaction.Prepare(`INSERT INTO pageviews(ts_utc, ts_iso, page) VALUES(?,?,?)`)
	if err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for _, pageview := range pageviews {
		if err := d.ValidatePageview(pageview); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("invalid pageview: %w", err)
		}
		if _, err := statement.Exec(pageview.TSUTC, pageview.TSISO, pageview.Page); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecentPageviews returns up to limit pageviews, newest first.
func (d *Database) RecentPageviews(limit int) ([]models.Pageview, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(`SELECT id, ts_utc, ts_iso, page FROM pageviews ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pageviews: %w", err)
	}
	defer rows.Close()

	pageviews := []models.Pageview{}
	for rows.Next() {
		var pageview models.Pageview
		if err := rows.Scan(&pageview.ID, &pageview.TSUTC, &pageview.TSISO, &pageview.Page); err != nil {
			return nil, fmt.Errorf("failed to scan pageview: %w", err)
		}
		pageviews = append(pageviews, pageview)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pageviews: %w", err)
	}
	return pageviews, nil
}

// PageCounts aggregates views per page, most viewed first.
func (d *Database) PageCounts() ([]models.PageCount, error) {
	rows, err := d.db.Query(`SELECT page, COUNT(*) AS views FROM pageviews GROUP BY page ORDER BY views DESC, page ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query page counts: %w", err)
	}
	defer rows.Close()

	counts := []models.PageCount{}
	for rows.Next() {
		var count models.PageCount
		if err := rows.Scan(&count.Page, &count.Views); err != nil {
			return nil, fmt.Errorf("failed to scan page count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate page counts: %w", err)
	}
	return counts, nil
}
