package report

//go:generate mockgen -source=../extract/store.go -destination=mocks/store.go -package=mocks Store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dwhmon/internal/audit"
	"dwhmon/internal/extract"
	"dwhmon/internal/report/mocks"
	dErrors "dwhmon/pkg/domain-errors"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeCache struct {
	stored *Report
	cached *Report
}

func (c *fakeCache) Get(context.Context) (*Report, bool) {
	if c.cached == nil {
		return nil, false
	}
	return c.cached, true
}

func (c *fakeCache) Set(_ context.Context, r *Report) { c.stored = r }

type fakeAuditor struct {
	events []audit.RunEvent
}

func (a *fakeAuditor) Publish(_ context.Context, ev audit.RunEvent) {
	a.events = append(a.events, ev)
}

func testSnapshot() *extract.Snapshot {
	day := func(offset int) *time.Time {
		d := testNow.AddDate(0, 0, offset)
		return &d
	}
	return &extract.Snapshot{
		Patients: []extract.PatientRecord{
			{ID: "p-1", DisplayName: "Durand Marie", ObservedAt: testNow},
			{ID: "p-1", DisplayName: "DURAND Marie", ObservedAt: testNow.Add(-time.Hour)},
			{ID: "p-2", DisplayName: "Patient TEST", ObservedAt: testNow},
			{ID: "p-3", DisplayName: "Martin Paul", ObservedAt: testNow},
		},
		Documents: []extract.DocumentRecord{
			{ID: "d-1", Source: "EMR", Type: "CRH", Title: "Compte rendu", CreatedAt: day(-3), ModifiedAt: day(-2)},
			{ID: "d-2", Source: "Easily_HL7", Type: "CRO", CreatedAt: day(-40), ModifiedAt: day(-39)},
			{ID: "d-3", Source: "LAB", Type: "BIO"},
		},
		Users: []extract.UserRecord{
			{ID: "u-1", Username: "admin admin", QueryTimes: []time.Time{testNow.AddDate(0, -1, 0)}},
			{ID: "u-2", Username: "alice", QueryTimes: []time.Time{testNow.AddDate(-1, 0, 0), testNow.AddDate(0, 0, -1)}},
		},
		Archives: []extract.ArchiveRecord{
			{Source: "EMR", OldestDocument: testNow.AddDate(-21, 0, 0), Status: "open"},
		},
		TakenAt: testNow,
	}
}

func newTestService(t *testing.T, store extract.Store, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	svc, err := New(store, DefaultConfig(), opts...)
	require.NoError(t, err)
	return svc
}

func TestServiceRefreshRunsFullPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Snapshot(gomock.Any()).Return(testSnapshot(), nil)

	cache := &fakeCache{}
	auditor := &fakeAuditor{}
	svc := newTestService(t, store, WithCache(cache), WithAuditor(auditor))

	r, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, testNow, r.GeneratedAt)
	require.Len(t, r.Sheets, len(SheetOrder))

	// The duplicated p-1 collapses, the TEST patient is excluded.
	assert.Equal(t, 2, r.Reconciliation.Patients.Canonical)
	assert.Equal(t, 1, r.Reconciliation.Patients.TestExcluded)
	assert.Equal(t, 1, r.Reconciliation.UnresolvedDocuments)

	// Source grouping applies in the distribution.
	counts := sheetByName(t, r.Sheets, SheetDocumentCounts)
	sources := make([]string, 0, len(counts.Rows))
	for _, row := range counts.Rows {
		sources = append(sources, row[0].(string))
	}
	assert.Contains(t, sources, "Easily")
	assert.NotContains(t, sources, "Easily_HL7")

	// Alias resolution folds the admin account into the canonical identity.
	users := sheetByName(t, r.Sheets, SheetTopUsers)
	require.NotEmpty(t, users.Rows)
	assert.Contains(t, users.Rows, []any{"CODOC", 1})

	// A fresh run replaces the cache and publishes a success event.
	assert.Same(t, r, cache.stored)
	require.Len(t, auditor.events, 1)
	assert.Equal(t, "success", auditor.events[0].Outcome)
	assert.Equal(t, r.RunID, auditor.events[0].RunID)
	assert.Equal(t, 1, auditor.events[0].Unresolved)
}

func TestServiceReportUsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	// No Snapshot expectation: a cache hit must not touch the warehouse.

	cached := &Report{RunID: "cached-run"}
	svc := newTestService(t, store, WithCache(&fakeCache{cached: cached}))

	r, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Same(t, cached, r)
}

func TestServiceReportMissRunsPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Snapshot(gomock.Any()).Return(testSnapshot(), nil)

	cache := &fakeCache{}
	svc := newTestService(t, store, WithCache(cache))

	r, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Same(t, r, cache.stored)
}

func TestServiceRefreshStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Snapshot(gomock.Any()).Return(nil, errors.New("connection refused"))

	auditor := &fakeAuditor{}
	svc := newTestService(t, store, WithAuditor(auditor))

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(err))

	require.Len(t, auditor.events, 1)
	assert.Equal(t, "failure", auditor.events[0].Outcome)
	assert.Contains(t, auditor.events[0].Error, "connection refused")
}

func TestServiceRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aggregation.TopUsers = 0

	_, err := New(extract.NewMemory(extract.Snapshot{}), cfg)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConfig, dErrors.CodeOf(err))
}

func TestServiceRunsAreDeterministic(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Snapshot(gomock.Any()).Return(testSnapshot(), nil).Times(2)

	svc := newTestService(t, store)

	a, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	b, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Sheets, b.Sheets)
	assert.Equal(t, a.Reconciliation, b.Reconciliation)
	assert.NotEqual(t, a.RunID, b.RunID)
}
