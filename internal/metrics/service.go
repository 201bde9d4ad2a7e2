package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
	"github.com/AngelCh415/amazon-ppc-etl/internal/store"
)

// ErrBadQuery marks a query parameter that could not be understood.
var ErrBadQuery = errors.New("bad query")

// Service answers metric queries over the current store contents.
type Service struct {
	st     *store.MemoryStore
	ledger ledger.Ledger
}

func NewService(st *store.MemoryStore, l ledger.Ledger) *Service {
	return &Service{st: st, ledger: l}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

func inSet(set map[string]struct{}, v string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[norm(v)]
	return ok
}

// dateRange reads from/to (YYYY-MM-DD). Missing bounds are open.
func dateRange(v url.Values) (string, string, error) {
	from, to := strings.TrimSpace(v.Get("from")), strings.TrimSpace(v.Get("to"))
	for name, d := range map[string]string{"from": from, "to": to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return "", "", fmt.Errorf("%w: %s date %q (want YYYY-MM-DD)", ErrBadQuery, name, d)
		}
	}
	return from, to, nil
}

func (s *Service) load(ctx context.Context, v url.Values) ([]models.BusinessRecord, []models.SearchTermRecord, map[string]models.CostEntry, error) {
	from, to, err := dateRange(v)
	if err != nil {
		return nil, nil, nil, err
	}
	bs, ts := s.st.Query(from, to)
	costs, err := ledger.Map(ctx, s.ledger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load costs: %w", err)
	}
	return bs, ts, costs, nil
}

func (s *Service) Summary(ctx context.Context, v url.Values) (models.Summary, error) {
	bs, ts, costs, err := s.load(ctx, v)
	if err != nil {
		return models.Summary{}, err
	}
	return BuildSummary(bs, ts, costs), nil
}

// QuerySKUs supports sku (comma separated) plus limit/offset.
func (s *Service) QuerySKUs(ctx context.Context, v url.Values) ([]models.SKUMetrics, error) {
	bs, ts, costs, err := s.load(ctx, v)
	if err != nil {
		return nil, err
	}
	skuSet := csvSet(v.Get("sku"))
	all := BuildSKUMetrics(bs, ts, costs)
	rows := make([]models.SKUMetrics, 0, len(all))
	for _, m := range all {
		if inSet(skuSet, m.SKU) {
			rows = append(rows, m)
		}
	}
	return page(rows, v), nil
}

// QueryCampaigns supports campaign and match_type filters.
func (s *Service) QueryCampaigns(ctx context.Context, v url.Values) ([]models.AdMetrics, error) {
	_, ts, _, err := s.load(ctx, v)
	if err != nil {
		return nil, err
	}
	return page(BuildCampaignMetrics(filterTerms(ts, v)), v), nil
}

// QuerySearchTerms additionally supports q, a case-insensitive substring of
// the search term.
func (s *Service) QuerySearchTerms(ctx context.Context, v url.Values) ([]models.AdMetrics, error) {
	_, ts, _, err := s.load(ctx, v)
	if err != nil {
		return nil, err
	}
	q := norm(v.Get("q"))
	filtered := filterTerms(ts, v)
	if q != "" {
		kept := filtered[:0]
		for _, t := range filtered {
			if strings.Contains(norm(t.SearchTerm), q) {
				kept = append(kept, t)
			}
		}
		filtered = kept
	}
	return page(BuildSearchTermMetrics(filtered), v), nil
}

func (s *Service) QueryMatchTypes(ctx context.Context, v url.Values) ([]models.AdMetrics, error) {
	_, ts, _, err := s.load(ctx, v)
	if err != nil {
		return nil, err
	}
	return BuildMatchTypeMetrics(filterTerms(ts, v)), nil
}

func (s *Service) QueryDaily(ctx context.Context, v url.Values) ([]models.DailyMetrics, error) {
	bs, ts, _, err := s.load(ctx, v)
	if err != nil {
		return nil, err
	}
	return page(BuildDailyMetrics(bs, ts), v), nil
}

func filterTerms(ts []models.SearchTermRecord, v url.Values) []models.SearchTermRecord {
	campSet := csvSet(v.Get("campaign"))
	mtSet := csvSet(v.Get("match_type"))
	out := make([]models.SearchTermRecord, 0, len(ts))
	for _, t := range ts {
		if inSet(campSet, t.Campaign) && inSet(mtSet, t.MatchType) {
			out = append(out, t)
		}
	}
	return out
}

func page[T any](rows []T, v url.Values) []T {
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset)
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
