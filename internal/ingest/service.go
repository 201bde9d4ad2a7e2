package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/amazon-ppc-etl/internal/dates"
	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
	"github.com/AngelCh415/amazon-ppc-etl/internal/observability"
	"github.com/AngelCh415/amazon-ppc-etl/internal/relay"
	"github.com/AngelCh415/amazon-ppc-etl/internal/session"
	"github.com/AngelCh415/amazon-ppc-etl/internal/store"
)

const (
	KindBusiness    = "business"
	KindSearchTerms = "search_terms"
)

// ErrInvalidReportDate is returned when the caller supplies a report date
// that cannot be read as a calendar day.
var ErrInvalidReportDate = errors.New("invalid report date")

// File is an uploaded report held in memory.
type File struct {
	Name    string
	Content []byte
}

// UploadResult describes what one upload did to the current state.
type UploadResult struct {
	BatchID      string                                       `json:"batch_id"`
	Business     *models.ParseResult[models.BusinessRecord]   `json:"business,omitempty"`
	SearchTerms  *models.ParseResult[models.SearchTermRecord] `json:"search_terms,omitempty"`
	Reconciled   bool                                         `json:"dates_reconciled"`
	LedgerSeeded int                                          `json:"ledger_seeded"`
}

// Service parses uploads and commits them to the store. Commits are
// serialised so each one replaces whole collections.
type Service struct {
	st           *store.MemoryStore
	ledger       ledger.Ledger
	relay        *relay.Relay
	log          *slog.Logger
	m            *observability.Metrics
	relayTimeout time.Duration
	now          func() time.Time

	mu sync.Mutex
}

func NewService(st *store.MemoryStore, l ledger.Ledger, rl *relay.Relay, log *slog.Logger, m *observability.Metrics, relayTimeout time.Duration) *Service {
	return &Service{st: st, ledger: l, relay: rl, log: log, m: m, relayTimeout: relayTimeout, now: time.Now}
}

// ReportDate resolves the caller-supplied date, defaulting to the upload day.
func (s *Service) ReportDate(raw string) (string, error) {
	if raw == "" {
		return s.now().UTC().Format(models.DateLayout), nil
	}
	d := dates.Normalize(raw)
	if d == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidReportDate, raw)
	}
	return d, nil
}

func (s *Service) LoadBusiness(ctx context.Context, sess session.Session, f File, reportDate string) (UploadResult, error) {
	day, err := s.ReportDate(reportDate)
	if err != nil {
		return UploadResult{}, err
	}
	out := UploadResult{BatchID: uuid.NewString()}
	res := s.parseBusiness(f, day)
	out.Business = &res

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitBusiness(ctx, res, &out); err != nil {
		return out, err
	}
	s.finish(sess, out, f, File{})
	return out, nil
}

func (s *Service) LoadSearchTerms(ctx context.Context, sess session.Session, f File) (UploadResult, error) {
	out := UploadResult{BatchID: uuid.NewString()}
	res := s.parseSearchTerms(f)
	out.SearchTerms = &res

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitSearchTerms(res, &out)
	s.finish(sess, out, File{}, f)
	return out, nil
}

// LoadBoth parses both reports concurrently and commits them once both
// parses have finished.
func (s *Service) LoadBoth(ctx context.Context, sess session.Session, business, terms File, reportDate string) (UploadResult, error) {
	day, err := s.ReportDate(reportDate)
	if err != nil {
		return UploadResult{}, err
	}
	out := UploadResult{BatchID: uuid.NewString()}

	var br models.ParseResult[models.BusinessRecord]
	var sr models.ParseResult[models.SearchTermRecord]
	var g errgroup.Group
	g.Go(func() error { br = s.parseBusiness(business, day); return nil })
	g.Go(func() error { sr = s.parseSearchTerms(terms); return nil })
	if err := g.Wait(); err != nil {
		return out, err
	}
	out.Business, out.SearchTerms = &br, &sr

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.seedLedger(ctx, br, &out); err != nil {
		return out, err
	}
	// terms first so the business records reconcile against the new dates
	s.commitSearchTerms(sr, &out)
	s.storeBusiness(br, &out)
	s.finish(sess, out, business, terms)
	return out, nil
}

// Clear drops both record collections. The cost ledger is kept.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Clear()
	s.log.Info("records cleared")
}

func (s *Service) parseBusiness(f File, day string) models.ParseResult[models.BusinessRecord] {
	start := time.Now()
	res := ParseBusinessReport(bytes.NewReader(f.Content), day)
	s.record(KindBusiness, res.Success, len(res.Data), len(res.Errors), time.Since(start))
	return res
}

func (s *Service) parseSearchTerms(f File) models.ParseResult[models.SearchTermRecord] {
	start := time.Now()
	res := ParseSearchTermReport(bytes.NewReader(f.Content))
	s.record(KindSearchTerms, res.Success, len(res.Data), len(res.Errors), time.Since(start))
	return res
}

// commitBusiness keeps any parsed rows, even from a partly failed parse;
// callers see the errors in the result.
func (s *Service) commitBusiness(ctx context.Context, res models.ParseResult[models.BusinessRecord], out *UploadResult) error {
	if err := s.seedLedger(ctx, res, out); err != nil {
		return err
	}
	s.storeBusiness(res, out)
	return nil
}

// seedLedger runs before any record is stored so a ledger failure leaves the
// current state untouched.
func (s *Service) seedLedger(ctx context.Context, res models.ParseResult[models.BusinessRecord], out *UploadResult) error {
	if len(res.Data) == 0 {
		return nil
	}
	skus := make([]string, 0, len(res.Data))
	for _, b := range res.Data {
		skus = append(skus, b.SKU)
	}
	n, err := s.ledger.EnsureSKUs(ctx, skus)
	if err != nil {
		return fmt.Errorf("seed cost ledger: %w", err)
	}
	out.LedgerSeeded = n
	if s.m != nil {
		s.m.LedgerSeeded.Add(float64(n))
	}
	return nil
}

func (s *Service) storeBusiness(res models.ParseResult[models.BusinessRecord], out *UploadResult) {
	if len(res.Data) == 0 {
		return
	}
	reconciled, changed := ReconcileDates(res.Data, s.st.SearchTerms())
	s.st.ReplaceBusiness(res.Data, reconciled)
	s.noteReconcile(changed, out)
}

func (s *Service) commitSearchTerms(res models.ParseResult[models.SearchTermRecord], out *UploadResult) {
	if len(res.Data) == 0 {
		return
	}
	reconciled, changed := ReconcileDates(s.st.ParsedBusiness(), res.Data)
	s.st.ReplaceSearchTerms(res.Data, reconciled)
	s.noteReconcile(changed, out)
}

func (s *Service) noteReconcile(changed bool, out *UploadResult) {
	if !changed {
		return
	}
	out.Reconciled = true
	if s.m != nil {
		s.m.Reconciliations.Inc()
	}
}

// finish logs the upload and hands successfully parsed files to the relay.
func (s *Service) finish(sess session.Session, out UploadResult, business, terms File) {
	attrs := []any{slog.String("batch_id", out.BatchID), slog.String("uploader", sess.Uploader()), slog.Bool("dates_reconciled", out.Reconciled)}
	if out.Business != nil {
		attrs = append(attrs, slog.Int("business_records", len(out.Business.Data)), slog.Int("business_errors", len(out.Business.Errors)))
		if out.Business.Success {
			s.forward(sess, out.BatchID, KindBusiness, business)
		}
	}
	if out.SearchTerms != nil {
		attrs = append(attrs, slog.Int("search_term_records", len(out.SearchTerms.Data)), slog.Int("search_term_errors", len(out.SearchTerms.Errors)))
		if out.SearchTerms.Success {
			s.forward(sess, out.BatchID, KindSearchTerms, terms)
		}
	}
	s.log.Info("upload processed", attrs...)
}

func (s *Service) forward(sess session.Session, batchID, kind string, f File) {
	if s.relay == nil {
		return
	}
	s.relay.Notify(relay.Upload{
		BatchID:  batchID,
		Kind:     kind,
		Filename: f.Name,
		Uploader: sess.Uploader(),
		Content:  f.Content,
	}, s.relayTimeout)
}

func (s *Service) record(kind string, ok bool, records, errs int, d time.Duration) {
	if s.m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	s.m.ParsesTotal.WithLabelValues(kind, outcome).Inc()
	s.m.RecordsParsed.WithLabelValues(kind).Add(float64(records))
	s.m.RowErrors.WithLabelValues(kind).Add(float64(errs))
	s.m.ParseDuration.WithLabelValues(kind).Observe(d.Seconds())
}
