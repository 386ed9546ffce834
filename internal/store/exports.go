package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/pavelanni/contestreport/internal/model"
)

// NewDownloadToken returns a 256-bit random token for a download link.
func NewDownloadToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RecordExport registers an exported report under its download token.
func (s *Store) RecordExport(e model.ExportRecord) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO exports (token, filename, path, event_number, row_count, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Token, e.Filename, e.Path, e.EventNumber, e.RowCount, e.CreatedAt.UTC(), e.ExpiresAt.UTC(),
	)
	if err != nil {
		slog.Error("failed to record export", "token", e.Token, "error", err)
		return err
	}
	slog.Info("recorded export", "filename", e.Filename, "event", e.EventNumber)
	return nil
}

// GetExport returns the export for the given token, or nil if not found/expired.
func (s *Store) GetExport(token string) (*model.ExportRecord, error) {
	var e model.ExportRecord
	err := s.db.QueryRow(
		`SELECT token, filename, path, event_number, row_count, created_at, expires_at
		 FROM exports WHERE token = ?`, token,
	).Scan(&e.Token, &e.Filename, &e.Path, &e.EventNumber, &e.RowCount, &e.CreatedAt, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(e.ExpiresAt) {
		_ = s.DeleteExport(token)
		return nil, nil
	}
	return &e, nil
}

// ListExports returns all registered exports, newest first.
func (s *Store) ListExports() ([]model.ExportRecord, error) {
	rows, err := s.db.Query(
		`SELECT token, filename, path, event_number, row_count, created_at, expires_at
		 FROM exports ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exports []model.ExportRecord
	for rows.Next() {
		var e model.ExportRecord
		if err := rows.Scan(&e.Token, &e.Filename, &e.Path, &e.EventNumber, &e.RowCount, &e.CreatedAt, &e.ExpiresAt); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// DeleteExport removes an export record.
func (s *Store) DeleteExport(token string) error {
	_, err := s.db.Exec(`DELETE FROM exports WHERE token = ?`, token)
	return err
}

// CleanupExpiredExports removes all expired records and returns their file
// paths so the caller can delete the files.
func (s *Store) CleanupExpiredExports() ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rows, err := tx.Query(`SELECT path FROM exports WHERE expires_at < ?`, now)
	if err != nil {
		return nil, err
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM exports WHERE expires_at < ?`, now); err != nil {
		return nil, err
	}
	return paths, tx.Commit()
}

// ExportCount returns the number of registered exports.
func (s *Store) ExportCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exports`).Scan(&count)
	return count, err
}
