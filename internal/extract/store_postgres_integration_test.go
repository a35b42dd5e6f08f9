//go:build integration

package extract_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dwhmon/internal/extract"
	"dwhmon/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *extract.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s.store = extract.NewPostgres(s.postgres.DB, extract.WithClock(func() time.Time { return s.now }))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) exec(query string, args ...any) {
	s.T().Helper()
	_, err := s.postgres.DB.ExecContext(context.Background(), query, args...)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestSnapshotEmptyWarehouse() {
	snap, err := s.store.Snapshot(context.Background())
	s.Require().NoError(err)

	s.Equal(s.now, snap.TakenAt)
	s.Empty(snap.Patients)
	s.Empty(snap.Documents)
	s.Empty(snap.Users)
	s.Empty(snap.Archives)
}

func (s *PostgresStoreSuite) TestSnapshotPatients() {
	birth := time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC)
	observed := s.now.Add(-time.Hour)
	s.exec(`INSERT INTO dwh_patient VALUES ($1, $2, $3, $4)`, "p-1", "Durand Marie", birth, observed)
	s.exec(`INSERT INTO dwh_patient (patient_id, display_name, observed_at) VALUES ($1, $2, $3)`, "p-2", "Martin Paul", observed)
	// A malformed row without an identifier still extracts.
	s.exec(`INSERT INTO dwh_patient (display_name) VALUES ($1)`, "orphan row")

	snap, err := s.store.Snapshot(context.Background())
	s.Require().NoError(err)
	s.Require().Len(snap.Patients, 3)

	byID := make(map[string]extract.PatientRecord)
	for _, p := range snap.Patients {
		byID[p.ID] = p
	}
	s.Require().NotNil(byID["p-1"].BirthDate)
	s.True(byID["p-1"].BirthDate.Equal(birth))
	s.True(byID["p-1"].ObservedAt.Equal(observed))
	s.Nil(byID["p-2"].BirthDate)
	s.Equal("orphan row", byID[""].DisplayName)
}

func (s *PostgresStoreSuite) TestSnapshotDocumentsAndArchives() {
	created := s.now.AddDate(0, 0, -10)
	modified := s.now.AddDate(0, 0, -9)
	old := s.now.AddDate(-21, 0, 0)
	s.exec(`INSERT INTO dwh_document VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		"d-1", "EMR", "CRH", "Compte rendu", "p-1", created, modified)
	s.exec(`INSERT INTO dwh_document (document_id, origin_code, modified_at) VALUES ($1, $2, $3)`,
		"d-2", "EMR", old)
	s.exec(`INSERT INTO dwh_document (document_id, origin_code) VALUES ($1, $2)`, "d-3", "LAB")

	snap, err := s.store.Snapshot(context.Background())
	s.Require().NoError(err)
	s.Require().Len(snap.Documents, 3)

	byID := make(map[string]extract.DocumentRecord)
	for _, d := range snap.Documents {
		byID[d.ID] = d
	}
	s.Require().NotNil(byID["d-1"].CreatedAt)
	s.True(byID["d-1"].CreatedAt.Equal(created))
	s.Nil(byID["d-1"].UploadedAt)
	s.Nil(byID["d-3"].CreatedAt)
	s.Nil(byID["d-3"].ModifiedAt)

	// Archive ages derive from the oldest usable document date per source.
	s.Require().Len(snap.Archives, 2)
	bysrc := make(map[string]extract.ArchiveRecord)
	for _, a := range snap.Archives {
		bysrc[a.Source] = a
	}
	s.True(bysrc["EMR"].OldestDocument.Equal(old))
	s.True(bysrc["LAB"].OldestDocument.IsZero())
}

func (s *PostgresStoreSuite) TestSnapshotUsersWithQueryLog() {
	s.exec(`INSERT INTO dwh_user VALUES ($1, $2, $3)`, "u-1", "admin", "admin")
	s.exec(`INSERT INTO dwh_user VALUES ($1, $2, $3)`, "u-2", "Alice", "Martin")
	s.exec(`INSERT INTO dwh_log_query VALUES ($1, $2)`, "u-1", s.now.AddDate(0, -1, 0))
	s.exec(`INSERT INTO dwh_log_query VALUES ($1, $2)`, "u-1", s.now.AddDate(0, 0, -2))

	snap, err := s.store.Snapshot(context.Background())
	s.Require().NoError(err)
	s.Require().Len(snap.Users, 2)

	byID := make(map[string]extract.UserRecord)
	for _, u := range snap.Users {
		byID[u.ID] = u
	}
	s.Equal("admin admin", byID["u-1"].Username)
	s.Len(byID["u-1"].QueryTimes, 2)
	s.Equal("Alice Martin", byID["u-2"].Username)
	s.Empty(byID["u-2"].QueryTimes)
}
