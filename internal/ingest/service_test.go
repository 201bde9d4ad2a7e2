package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
	"github.com/AngelCh415/amazon-ppc-etl/internal/observability"
	"github.com/AngelCh415/amazon-ppc-etl/internal/relay"
	"github.com/AngelCh415/amazon-ppc-etl/internal/session"
	"github.com/AngelCh415/amazon-ppc-etl/internal/store"
	"github.com/AngelCh415/amazon-ppc-etl/internal/utils"
)

const businessCSV = "SKU,Sessions,Units Ordered,Ordered Product Sales,Unit Session Percentage\n" +
	"A,100,10,300,10%\n" +
	"B,50,5,100,10%\n"

func searchTermFile(t *testing.T) File {
	return File{Name: "str.xlsx", Content: workbook(t,
		[]any{"Date", "Campaign Name", "Ad Group Name", "Customer Search Term", "Match Type", "Impressions", "Clicks", "Spend", "7 Day Total Sales", "7 Day Total Orders"},
		[]any{"2024-01-02", "C1", "G", "mug", "Exact", 100, 10, 5, 20, 1},
		[]any{"2024-01-01", "C1", "G", "cup", "Broad", 100, 10, 5, 20, 1},
	)}
}

type fixture struct {
	svc     *Service
	st      *store.MemoryStore
	ledger  *ledger.MemoryLedger
	metrics *observability.Metrics
}

func newFixture(t *testing.T, rl *relay.Relay) fixture {
	t.Helper()
	st := store.NewMemoryStore()
	l := ledger.NewMemoryLedger()
	m := observability.NewMetrics("test")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, l, rl, log, m, time.Second)
	svc.now = func() time.Time { return time.Date(2024, 1, 9, 23, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, st: st, ledger: l, metrics: m}
}

func TestLoadBusinessThenSearchTerms(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	sess := session.Session{UserEmail: "seller@example.com"}

	out, err := fx.svc.LoadBusiness(ctx, sess, File{Name: "br.csv", Content: []byte(businessCSV)}, "2024-01-01")
	require.NoError(t, err)
	require.NotNil(t, out.Business)
	assert.True(t, out.Business.Success)
	assert.NotEmpty(t, out.BatchID)
	assert.False(t, out.Reconciled)
	assert.Equal(t, 2, out.LedgerSeeded)

	out, err = fx.svc.LoadSearchTerms(ctx, sess, searchTermFile(t))
	require.NoError(t, err)
	assert.True(t, out.SearchTerms.Success, "errors: %v", out.SearchTerms.Errors)
	assert.True(t, out.Reconciled)

	got := fx.st.Business()
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-01", got[0].Date)
	assert.Equal(t, "2024-01-02", got[1].Date)
	assert.Equal(t, "2024-01-01", fx.st.ParsedBusiness()[1].Date)

	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.Reconciliations))
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.LedgerSeeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.ParsesTotal.WithLabelValues(KindSearchTerms, "success")))
}

func TestLoadBusinessKeepsExistingCosts(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	_, err := fx.ledger.Upsert(ctx, models.CostEntry{SKU: "A", SalePrice: 30})
	require.NoError(t, err)
	_, err = fx.ledger.Upsert(ctx, models.CostEntry{SKU: "ORPHAN", COGS: 2})
	require.NoError(t, err)

	out, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(businessCSV)}, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, out.LedgerSeeded)

	a, err := fx.ledger.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 30.0, a.SalePrice)
	_, err = fx.ledger.Get(ctx, "ORPHAN")
	assert.NoError(t, err, "orphaned entries are preserved")
}

func TestLoadBusinessDefaultsToUploadDay(t *testing.T) {
	fx := newFixture(t, nil)
	out, err := fx.svc.LoadBusiness(context.Background(), session.Session{}, File{Content: []byte(businessCSV)}, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-09", out.Business.Data[0].Date)
}

func TestLoadBusinessRejectsBadReportDate(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.svc.LoadBusiness(context.Background(), session.Session{}, File{Content: []byte(businessCSV)}, "yesterday-ish")
	assert.ErrorIs(t, err, ErrInvalidReportDate)
}

func TestFailedParseKeepsPreviousData(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	_, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(businessCSV)}, "2024-01-01")
	require.NoError(t, err)

	out, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte("SKU,Foo\nA,1\n")}, "2024-01-01")
	require.NoError(t, err)
	assert.False(t, out.Business.Success)
	assert.Len(t, fx.st.Business(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.ParsesTotal.WithLabelValues(KindBusiness, "failure")))
}

func TestPartialParseReplacesData(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	_, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(businessCSV)}, "2024-01-01")
	require.NoError(t, err)

	partial := "SKU,Sessions,Units Ordered,Sales,CVR\nZ,1,1,1,1%\n,2,2,2,2%\n"
	out, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(partial)}, "2024-01-01")
	require.NoError(t, err)
	assert.False(t, out.Business.Success)
	got := fx.st.Business()
	require.Len(t, got, 1)
	assert.Equal(t, "Z", got[0].SKU)
}

// brokenLedger fails every seeding attempt.
type brokenLedger struct{ *ledger.MemoryLedger }

func (brokenLedger) EnsureSKUs(context.Context, []string) (int, error) {
	return 0, errors.New("ledger offline")
}

func TestLedgerFailureLeavesRecordsUntouched(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	_, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(businessCSV)}, "2024-01-01")
	require.NoError(t, err)

	fx.svc.ledger = brokenLedger{fx.ledger}
	next := "SKU,Sessions,Units Ordered,Sales,CVR\nZ,1,1,1,1%\n"
	_, err = fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(next)}, "2024-01-02")
	require.Error(t, err)
	got := fx.st.Business()
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].SKU)

	_, err = fx.svc.LoadBoth(ctx, session.Session{}, File{Content: []byte(next)}, searchTermFile(t), "2024-01-02")
	require.Error(t, err)
	assert.Empty(t, fx.st.SearchTerms(), "search terms are not committed when seeding fails")
	assert.Len(t, fx.st.Business(), 2)
}

func TestLoadBothForwardsToRelay(t *testing.T) {
	received := make(chan map[string]string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		json.NewDecoder(r.Body).Decode(&p)
		received <- p
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rl := relay.New(relay.NewHTTPClient(time.Second, utils.NewBackoff(time.Millisecond, 0), log), srv.URL, "secret", log, nil)
	fx := newFixture(t, rl)

	out, err := fx.svc.LoadBoth(context.Background(), session.Session{UserEmail: "me@example.com"},
		File{Name: "br.csv", Content: []byte(businessCSV)}, searchTermFile(t), "2024-01-01")
	require.NoError(t, err)
	assert.True(t, out.Business.Success)
	assert.True(t, out.SearchTerms.Success)
	assert.True(t, out.Reconciled)
	assert.Len(t, fx.st.SearchTerms(), 2)
	assert.Equal(t, "2024-01-02", fx.st.Business()[1].Date)

	kinds := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case p := <-received:
			kinds[p["kind"]] = true
			assert.Equal(t, out.BatchID, p["batch_id"])
			assert.Equal(t, "me@example.com", p["uploader"])
		case <-time.After(3 * time.Second):
			t.Fatal("relay did not receive both uploads")
		}
	}
	assert.True(t, kinds[KindBusiness])
	assert.True(t, kinds[KindSearchTerms])
}

func TestClear(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	_, err := fx.svc.LoadBusiness(ctx, session.Session{}, File{Content: []byte(businessCSV)}, "2024-01-01")
	require.NoError(t, err)

	fx.svc.Clear()

	assert.Empty(t, fx.st.Business())
	all, err := fx.ledger.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "clearing records leaves costs alone")
}
