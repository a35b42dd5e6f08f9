package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// PostgresStore extracts snapshots from a Postgres-hosted warehouse replica.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresStore instance.
type PostgresOption func(*PostgresStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a Postgres-backed extract store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Snapshot fetches the four record collections concurrently. The result is a
// point-in-time view; consistency across the four queries is the warehouse
// replica's concern.
func (s *PostgresStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: s.clock()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Patients, err = s.fetchPatients(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Documents, err = s.fetchDocuments(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Users, err = s.fetchUsers(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Archives, err = s.fetchArchives(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract snapshot: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) fetchPatients(ctx context.Context) ([]PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, display_name, birth_date, observed_at
		FROM dwh_patient
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch patients: %w", err)
	}
	defer rows.Close()

	var out []PatientRecord
	for rows.Next() {
		var (
			id, name sql.NullString
			birth    sql.NullTime
			observed sql.NullTime
		)
		if err := rows.Scan(&id, &name, &birth, &observed); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		rec := PatientRecord{
			ID:          id.String,
			DisplayName: name.String,
			ObservedAt:  observed.Time,
		}
		if birth.Valid {
			t := birth.Time
			rec.BirthDate = &t
		}
		// Rows missing an identifier still flow through; the reconciler
		// counts them as skipped rather than failing the extraction.
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) fetchDocuments(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, origin_code, document_type, title, patient_id,
		       created_at, modified_at, uploaded_at
		FROM dwh_document
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRecord
	for rows.Next() {
		var (
			id, source, docType, title, patientID sql.NullString
			created, modified, uploaded           sql.NullTime
		)
		if err := rows.Scan(&id, &source, &docType, &title, &patientID, &created, &modified, &uploaded); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		rec := DocumentRecord{
			ID:        id.String,
			Source:    source.String,
			Type:      docType.String,
			Title:     title.String,
			PatientID: patientID.String,
		}
		rec.CreatedAt = nullableTime(created)
		rec.ModifiedAt = nullableTime(modified)
		rec.UploadedAt = nullableTime(uploaded)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) fetchUsers(ctx context.Context) ([]UserRecord, error) {
	// lib/pq cannot scan a timestamptz[] directly into []time.Time, so the
	// query formats each log date as RFC 3339 text and the elements are
	// parsed back on this side.
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id,
		       trim(u.firstname || ' ' || u.lastname),
		       coalesce(array_agg(to_char(l.log_date AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')) FILTER (WHERE l.log_date IS NOT NULL), '{}')
		FROM dwh_user u
		LEFT JOIN dwh_log_query l ON l.user_id = u.user_id
		GROUP BY u.user_id, u.firstname, u.lastname
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer rows.Close()

	var out []UserRecord
	for rows.Next() {
		var (
			id, username sql.NullString
			raw          pq.StringArray
		)
		if err := rows.Scan(&id, &username, &raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		queryTimes, err := parseLogTimes(raw)
		if err != nil {
			return nil, fmt.Errorf("scan user %q: %w", id.String, err)
		}
		out = append(out, UserRecord{
			ID:         id.String,
			Username:   username.String,
			QueryTimes: queryTimes,
		})
	}
	return out, rows.Err()
}

// parseLogTimes converts the text-encoded query log timestamps back into
// time values. An empty array yields nil so seeded and fetched snapshots
// compare equal.
func parseLogTimes(raw []string) ([]time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(raw))
	for _, v := range raw {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("parse log date %q: %w", v, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *PostgresStore) fetchArchives(ctx context.Context) ([]ArchiveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT origin_code, min(coalesce(modified_at, uploaded_at, created_at)), 'active'
		FROM dwh_document
		GROUP BY origin_code
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch archives: %w", err)
	}
	defer rows.Close()

	var out []ArchiveRecord
	for rows.Next() {
		var (
			source sql.NullString
			oldest sql.NullTime
			status sql.NullString
		)
		if err := rows.Scan(&source, &oldest, &status); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		out = append(out, ArchiveRecord{
			Source:         source.String,
			OldestDocument: oldest.Time,
			Status:         status.String,
		})
	}
	return out, rows.Err()
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
