package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]models.CostEntry
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]models.CostEntry), now: time.Now}
}

func (l *MemoryLedger) All(_ context.Context) ([]models.CostEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.CostEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (l *MemoryLedger) Get(_ context.Context, sku string) (models.CostEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[strings.TrimSpace(sku)]
	if !ok {
		return models.CostEntry{}, fmt.Errorf("sku %q: %w", sku, ErrNotFound)
	}
	return e, nil
}

func (l *MemoryLedger) Upsert(_ context.Context, e models.CostEntry) (models.CostEntry, error) {
	e, err := Validate(e)
	if err != nil {
		return e, err
	}
	e.LastUpdated = l.now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.SKU] = e
	return e, nil
}

func (l *MemoryLedger) Replace(_ context.Context, entries []models.CostEntry) error {
	next := make(map[string]models.CostEntry, len(entries))
	ts := l.now().UTC()
	for _, e := range entries {
		e, err := Validate(e)
		if err != nil {
			return err
		}
		if e.LastUpdated.IsZero() {
			e.LastUpdated = ts
		}
		next[e.SKU] = e
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = next
	return nil
}

func (l *MemoryLedger) Delete(_ context.Context, sku string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	sku = strings.TrimSpace(sku)
	if _, ok := l.entries[sku]; !ok {
		return fmt.Errorf("sku %q: %w", sku, ErrNotFound)
	}
	delete(l.entries, sku)
	return nil
}

func (l *MemoryLedger) EnsureSKUs(_ context.Context, skus []string) (int, error) {
	ts := l.now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, sku := range skus {
		sku = strings.TrimSpace(sku)
		if sku == "" {
			continue
		}
		if _, ok := l.entries[sku]; ok {
			continue
		}
		l.entries[sku] = models.CostEntry{SKU: sku, LastUpdated: ts}
		added++
	}
	return added, nil
}
