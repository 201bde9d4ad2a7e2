package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

type costs struct{ l ledger.Ledger }

// costInput is the editable part of a cost entry.
type costInput struct {
	SKU        string  `json:"sku,omitempty"`
	SalePrice  float64 `json:"sale_price"`
	AmazonFees float64 `json:"amazon_fees"`
	COGS       float64 `json:"cogs"`
}

func (in costInput) entry() models.CostEntry {
	return models.CostEntry{SKU: in.SKU, SalePrice: in.SalePrice, AmazonFees: in.AmazonFees, COGS: in.COGS}
}

func (c costs) list(w http.ResponseWriter, r *http.Request) {
	all, err := c.l.All(r.Context())
	if err != nil {
		ledgerError(w, err)
		return
	}
	writeJSON(w, all)
}

func (c costs) replace(w http.ResponseWriter, r *http.Request) {
	var in []costInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	entries := make([]models.CostEntry, 0, len(in))
	for _, e := range in {
		entries = append(entries, e.entry())
	}
	if err := c.l.Replace(r.Context(), entries); err != nil {
		ledgerError(w, err)
		return
	}
	c.list(w, r)
}

func (c costs) get(w http.ResponseWriter, r *http.Request) {
	e, err := c.l.Get(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		ledgerError(w, err)
		return
	}
	writeJSON(w, e)
}

// upsert takes the SKU from the path; a SKU in the body is ignored.
func (c costs) upsert(w http.ResponseWriter, r *http.Request) {
	var in costInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	in.SKU = chi.URLParam(r, "sku")
	e, err := c.l.Upsert(r.Context(), in.entry())
	if err != nil {
		ledgerError(w, err)
		return
	}
	writeJSON(w, e)
}

func (c costs) delete(w http.ResponseWriter, r *http.Request) {
	if err := c.l.Delete(r.Context(), chi.URLParam(r, "sku")); err != nil {
		ledgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ledgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), 404)
	case errors.Is(err, ledger.ErrInvalidInput):
		http.Error(w, err.Error(), 400)
	default:
		http.Error(w, err.Error(), 500)
	}
}
