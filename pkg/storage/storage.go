// Package storage implements the transcript document store on SQLite.
// It persists approved transcript records and serves the dedup reference
// data consumed by cross-reference validation.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/hashing"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/validation"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS transcripts (
  id            INTEGER PRIMARY KEY,
  event_id      TEXT NOT NULL,
  company_name  TEXT NOT NULL,
  ticker        TEXT NOT NULL,
  quarter       TEXT NOT NULL,
  fiscal_year   INTEGER NOT NULL,
  call_date     TEXT,
  title         TEXT,
  word_count    INTEGER NOT NULL DEFAULT 0,
  source_url    TEXT,
  content       TEXT NOT NULL,
  content_hash  TEXT NOT NULL,
  raw_html_hash TEXT,
  fingerprint   TEXT,
  confidence    INTEGER,
  audit_id      TEXT,
  created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(event_id, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_transcripts_event ON transcripts(event_id);
CREATE INDEX IF NOT EXISTS idx_transcripts_ticker ON transcripts(ticker);
CREATE TABLE IF NOT EXISTS event_dates (
  company     TEXT NOT NULL,
  event_id    TEXT NOT NULL,
  call_date   TEXT NOT NULL,
  source      TEXT,
  verified    INTEGER NOT NULL CHECK (verified IN (0,1)),
  confidence  INTEGER,
  updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (company, event_id)
);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Record is one persisted transcript.
type Record struct {
	ID          int64
	EventID     string
	CompanyName string
	Ticker      string
	Quarter     string
	FiscalYear  int
	CallDate    string
	Title       string
	WordCount   int
	SourceURL   string
	Content     string
	ContentHash string
	RawHTMLHash string
	Fingerprint []string
	Confidence  int
	AuditID     string
	CreatedAt   time.Time
}

// SaveRecord persists the record, computing its content hash and
// fingerprint when the caller left them empty. Returns the new row id.
func (d *DB) SaveRecord(ctx context.Context, rec *Record) (int64, error) {
	if rec.EventID == "" {
		return 0, fmt.Errorf("record has no event id")
	}
	if rec.ContentHash == "" {
		rec.ContentHash = hashing.ContentHash(rec.Content)
	}
	if len(rec.Fingerprint) == 0 {
		rec.Fingerprint = hashing.GenerateFingerprint(rec.Content, hashing.DefaultShingleSize, hashing.DefaultNumHashes)
	}
	fpJSON, err := json.Marshal(rec.Fingerprint)
	if err != nil {
		return 0, err
	}

	res, err := d.sql.ExecContext(ctx, `
INSERT INTO transcripts(event_id, company_name, ticker, quarter, fiscal_year, call_date, title, word_count, source_url, content, content_hash, raw_html_hash, fingerprint, confidence, audit_id)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.EventID, rec.CompanyName, rec.Ticker, rec.Quarter, rec.FiscalYear,
		rec.CallDate, rec.Title, rec.WordCount, rec.SourceURL, rec.Content,
		rec.ContentHash, rec.RawHTMLHash, string(fpJSON), rec.Confidence, rec.AuditID)
	if err != nil {
		return 0, fmt.Errorf("saving transcript record: %w", err)
	}
	return res.LastInsertId()
}

// ListRecordsForEvent returns all stored records for the event, including
// content so callers can recompute hashes when older rows lack them.
func (d *DB) ListRecordsForEvent(ctx context.Context, eventID string) ([]Record, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, event_id, company_name, ticker, quarter, fiscal_year,
       COALESCE(call_date,''), COALESCE(title,''), word_count,
       COALESCE(source_url,''), content, content_hash,
       COALESCE(raw_html_hash,''), COALESCE(fingerprint,''),
       COALESCE(confidence,0), COALESCE(audit_id,'')
FROM transcripts WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var fpJSON string
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.CompanyName, &rec.Ticker,
			&rec.Quarter, &rec.FiscalYear, &rec.CallDate, &rec.Title, &rec.WordCount,
			&rec.SourceURL, &rec.Content, &rec.ContentHash, &rec.RawHTMLHash,
			&fpJSON, &rec.Confidence, &rec.AuditID); err != nil {
			return nil, err
		}
		if fpJSON != "" {
			if err := json.Unmarshal([]byte(fpJSON), &rec.Fingerprint); err != nil {
				rec.Fingerprint = nil
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DateUpdate carries a verified call date for an event.
type DateUpdate struct {
	Date       time.Time
	Source     string
	Verified   bool
	Confidence int
}

// UpdateEventDate upserts the authoritative call date for an event.
func (d *DB) UpdateEventDate(ctx context.Context, company, eventID string, upd DateUpdate) error {
	verified := 0
	if upd.Verified {
		verified = 1
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO event_dates(company, event_id, call_date, source, verified, confidence, updated_at)
VALUES(?,?,?,?,?,?,CURRENT_TIMESTAMP)
ON CONFLICT(company, event_id) DO UPDATE SET
  call_date = excluded.call_date,
  source = excluded.source,
  verified = excluded.verified,
  confidence = excluded.confidence,
  updated_at = CURRENT_TIMESTAMP`,
		company, eventID, upd.Date.Format("2006-01-02"), upd.Source, verified, upd.Confidence)
	if err != nil {
		return fmt.Errorf("updating event date: %w", err)
	}
	return nil
}

// ReferenceForEvent assembles the cross-reference input for layer 3 from
// stored records, recomputing missing hashes and fingerprints on the fly.
func (d *DB) ReferenceForEvent(ctx context.Context, eventID string, expectedDate *time.Time) (*validation.ReferenceData, error) {
	records, err := d.ListRecordsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ref := &validation.ReferenceData{EventID: eventID, ExpectedDate: expectedDate}
	for _, rec := range records {
		hash := rec.ContentHash
		if hash == "" {
			hash = hashing.ContentHash(rec.Content)
		}
		fp := rec.Fingerprint
		if len(fp) == 0 {
			fp = hashing.GenerateFingerprint(rec.Content, hashing.DefaultShingleSize, hashing.DefaultNumHashes)
		}
		ref.Records = append(ref.Records, validation.StoredRecord{
			ID:          fmt.Sprintf("%d", rec.ID),
			ContentHash: hash,
			Fingerprint: fp,
		})
	}
	return ref, nil
}

// TickerStats is one row of the db stats table.
type TickerStats struct {
	Ticker        string
	RecordCount   int
	EventCount    int
	AvgConfidence float64
}

func (d *DB) GetStats(ctx context.Context) ([]TickerStats, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT ticker, COUNT(*), COUNT(DISTINCT event_id), AVG(COALESCE(confidence,0))
FROM transcripts GROUP BY ticker ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TickerStats
	for rows.Next() {
		var s TickerStats
		if err := rows.Scan(&s.Ticker, &s.RecordCount, &s.EventCount, &s.AvgConfidence); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
