package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chengchang/ledger/internal/record"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads a record row from the scanner.
// Expected column order: id, date, type, category, amount, notes, image_url, created_at
func scanRecord(s scanner) (*record.Record, error) {
	var rec record.Record

	var typeStr string

	var imageURL sql.NullString

	if err := s.Scan(
		&rec.ID, &rec.Date, &typeStr, &rec.Category, &rec.Amount, &rec.Notes,
		&imageURL, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	rec.Type = record.Type(typeStr)

	if imageURL.Valid {
		rec.ImageURL = &imageURL.String
	}

	return &rec, nil
}

const selectRecordColumns = ` id, date, type, category, amount, notes, image_url, created_at `

func (s *Store) CreateRecord(ctx context.Context, rec *record.Record) error {
	query := `
		INSERT INTO records (date, type, category, amount, notes, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		rec.Date,
		rec.Type,
		rec.Category,
		rec.Amount,
		rec.Notes,
		rec.ImageURL,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating record: %w", err)
	}

	return nil
}

func (s *Store) GetRecord(ctx context.Context, id uuid.UUID) (*record.Record, error) {
	query := `SELECT` + selectRecordColumns + `FROM records WHERE id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}

		return nil, fmt.Errorf("getting record: %w", err)
	}

	return rec, nil
}

// buildFilter renders the present-only filter parameters into AND-ed
// positional clauses. Values are always bound, never interpolated into the
// query text.
func buildFilter(filter record.ListFilter) (string, []any) {
	var where string

	var args []any

	argIdx := 1

	appendClause := func(cond string, value any) {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}

		where += fmt.Sprintf(cond, argIdx)

		args = append(args, value)
		argIdx++
	}

	if filter.StartDate != nil {
		appendClause("date >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		appendClause("date <= $%d", *filter.EndDate)
	}

	if filter.Category != nil {
		appendClause("category = $%d", *filter.Category)
	}

	return where, args
}

func (s *Store) ListRecords(ctx context.Context, filter record.ListFilter) ([]*record.Record, error) {
	where, args := buildFilter(filter)

	// Fixed ordering: newest first, created_at breaks ties for equal dates.
	query := `SELECT` + selectRecordColumns + `FROM records` + where +
		` ORDER BY date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var recs []*record.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return recs, nil
}

// UpdateRecord writes all mutable fields by id. A vanished row surfaces
// ErrNotFound, so an update racing a delete on the same id fails
// deterministically instead of reviving the row.
func (s *Store) UpdateRecord(ctx context.Context, rec *record.Record) error {
	query := `
		UPDATE records
		SET date = $1, type = $2, category = $3, amount = $4, notes = $5, image_url = $6
		WHERE id = $7
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		rec.Date,
		rec.Type,
		rec.Category,
		rec.Amount,
		rec.Notes,
		rec.ImageURL,
		rec.ID,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record.ErrNotFound
		}

		return fmt.Errorf("updating record: %w", err)
	}

	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	if affected == 0 {
		return record.ErrNotFound
	}

	return nil
}
