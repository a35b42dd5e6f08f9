package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dwhmon/internal/aggregate"
	"dwhmon/internal/audit"
	"dwhmon/internal/extract"
	"dwhmon/internal/platform/metrics"
	"dwhmon/internal/reconcile"
	dErrors "dwhmon/pkg/domain-errors"
)

// Report is one complete run output: the ordered sheets plus the
// reconciliation report operators use to audit what was excluded.
type Report struct {
	RunID          string         `json:"run_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Sheets         []Sheet        `json:"sheets"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

// Reconciliation surfaces every exclusion and flag a run made.
type Reconciliation struct {
	Patients            reconcile.DedupReport `json:"patients"`
	UnresolvedDocuments int                   `json:"unresolved_documents"`
	SuspectDates        int                   `json:"suspect_dates"`
}

// Auditor receives run-completion events. Implementations must not block the
// run on delivery.
type Auditor interface {
	Publish(ctx context.Context, ev audit.RunEvent)
}

// Service orchestrates a full report run: extract, reconcile, resolve dates,
// aggregate, assemble. Runs are pure given a snapshot and a clock reading, so
// the same warehouse state always produces the same sheets.
type Service struct {
	store   extract.Store
	cfg     Config
	cache   Cache
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures optional Service dependencies.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the report-generation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New validates the configuration and builds a Service. An invalid
// configuration is fatal here, before any run starts.
func New(store extract.Store, cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("dwhmon/report"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Report returns the cached report when one is fresh, running the pipeline
// otherwise.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	if s.cache != nil {
		if r, ok := s.cache.Get(ctx); ok {
			if s.metrics != nil {
				s.metrics.ReportCacheHits.Inc()
			}
			return r, nil
		}
		if s.metrics != nil {
			s.metrics.ReportCacheMisses.Inc()
		}
	}
	return s.Refresh(ctx)
}

// Refresh always runs the full pipeline and replaces the cached report.
func (s *Service) Refresh(ctx context.Context) (*Report, error) {
	started := s.now()
	r, err := s.run(ctx)
	elapsed := s.now().Sub(started)

	if s.metrics != nil {
		s.metrics.ObserveRun(elapsed, err)
	}
	if err != nil {
		s.publishRun(ctx, audit.RunEvent{
			RunID:          uuid.NewString(),
			GeneratedAt:    started,
			DurationMillis: elapsed.Milliseconds(),
			Outcome:        "failure",
			Error:          err.Error(),
		})
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, r)
	}
	s.publishRun(ctx, audit.RunEvent{
		RunID:          r.RunID,
		GeneratedAt:    r.GeneratedAt,
		DurationMillis: elapsed.Milliseconds(),
		Patients:       r.Reconciliation.Patients.Canonical,
		Documents:      totalDocuments(r),
		SuspectDates:   r.Reconciliation.SuspectDates,
		Unresolved:     r.Reconciliation.UnresolvedDocuments,
		Outcome:        "success",
	})
	s.logger.Info("report run completed",
		"run_id", r.RunID,
		"duration_ms", elapsed.Milliseconds(),
		"patients", r.Reconciliation.Patients.Canonical,
	)
	return r, nil
}

func (s *Service) run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	now := s.now()

	ctx, span := s.tracer.Start(ctx, "report.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	snapshot, err := s.extract(ctx)
	if err != nil {
		return nil, err
	}

	dedup := s.reconcile(ctx, snapshot)

	resolved, unresolvedCount, suspectCount := s.resolveDates(ctx, snapshot.Documents, now)

	agg := s.aggregate(ctx, snapshot, resolved, dedup, now)
	agg.UnresolvedDocs = unresolvedCount
	agg.SuspectDates = suspectCount

	_, assembleSpan := s.tracer.Start(ctx, "report.assemble")
	sheets := Assemble(agg, now)
	assembleSpan.End()

	return &Report{
		RunID:       runID,
		GeneratedAt: now,
		Sheets:      sheets,
		Reconciliation: Reconciliation{
			Patients:            dedup,
			UnresolvedDocuments: unresolvedCount,
			SuspectDates:        suspectCount,
		},
	}, nil
}

func (s *Service) extract(ctx context.Context) (*extract.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "report.extract")
	defer span.End()

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "extract snapshot")
	}
	span.SetAttributes(
		attribute.Int("patients", len(snapshot.Patients)),
		attribute.Int("documents", len(snapshot.Documents)),
	)
	return snapshot, nil
}

func (s *Service) reconcile(ctx context.Context, snapshot *extract.Snapshot) reconcile.DedupReport {
	_, span := s.tracer.Start(ctx, "report.reconcile")
	defer span.End()

	_, dedup := reconcile.ReconcilePatients(snapshot.Patients, s.cfg.Rules)
	if s.metrics != nil {
		s.metrics.ExcludedPatients.WithLabelValues("test").Add(float64(dedup.TestExcluded))
		s.metrics.ExcludedPatients.WithLabelValues("duplicate").Add(float64(dedup.DuplicateExcluded))
		s.metrics.SkippedRecords.Add(float64(dedup.Skipped))
	}
	return dedup
}

func (s *Service) resolveDates(ctx context.Context, docs []extract.DocumentRecord, now time.Time) ([]aggregate.ResolvedDocument, int, int) {
	_, span := s.tracer.Start(ctx, "report.resolve_dates")
	defer span.End()

	resolved := make([]aggregate.ResolvedDocument, 0, len(docs))
	var unresolved, suspect int
	for _, doc := range docs {
		res := s.cfg.Dates.Resolve(doc, now)
		if !res.Resolved {
			unresolved++
		} else if res.Suspect {
			suspect++
		}
		resolved = append(resolved, aggregate.ResolvedDocument{DocumentRecord: doc, Resolution: res})
	}
	if s.metrics != nil {
		s.metrics.UnresolvedDocuments.Add(float64(unresolved))
		s.metrics.SuspectDates.Add(float64(suspect))
	}
	span.SetAttributes(
		attribute.Int("unresolved", unresolved),
		attribute.Int("suspect", suspect),
	)
	return resolved, unresolved, suspect
}

func (s *Service) aggregate(ctx context.Context, snapshot *extract.Snapshot, docs []aggregate.ResolvedDocument, dedup reconcile.DedupReport, now time.Time) Aggregates {
	_, span := s.tracer.Start(ctx, "report.aggregate")
	defer span.End()

	settings := s.cfg.Aggregation
	year := now.Year()
	delay, delayOK := settings.DelayStatistics(docs, now)

	return Aggregates{
		Dedup:              dedup,
		TotalDocuments:     len(docs),
		Distribution:       settings.Distribution(docs),
		Recent:             settings.RecentBySource(docs, now),
		Monthly:            settings.MonthlyBySource(docs, year),
		Types:              settings.CountByType(docs),
		TopUsers:           settings.UserQueryTotals(snapshot.Users, s.cfg.Rules.UserAliases, nil),
		TopUsersYear:       settings.UserQueryTotals(snapshot.Users, s.cfg.Rules.UserAliases, &year),
		Archive:            settings.ArchiveStatus(snapshot.Archives, now),
		DeletionCandidates: settings.DeletionCandidates(docs, now),
		Delay:              delay,
		DelayOK:            delayOK,
	}
}

func (s *Service) publishRun(ctx context.Context, ev audit.RunEvent) {
	if s.auditor == nil {
		return
	}
	s.auditor.Publish(ctx, ev)
}

func totalDocuments(r *Report) int {
	for _, sheet := range r.Sheets {
		if sheet.Name != SheetDocumentCounts {
			continue
		}
		total := 0
		for _, row := range sheet.Rows {
			if n, ok := row[1].(int); ok {
				total += n
			}
		}
		return total
	}
	return 0
}
