package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/amazon-ppc-etl/internal/ingest"
	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/metrics"
	"github.com/AngelCh415/amazon-ppc-etl/internal/session"
	"github.com/AngelCh415/amazon-ppc-etl/internal/utils"
)

// Deps groups what the router serves.
type Deps struct {
	Log            *slog.Logger
	Ingest         *ingest.Service
	Metrics        *metrics.Service
	Ledger         ledger.Ledger
	Prometheus     http.Handler
	AdminEmails    []string
	MaxUploadBytes int64
}

func NewRouter(d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))
	mux.Use(session.Middleware(d.AdminEmails))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	if d.Prometheus != nil {
		mux.Method(http.MethodGet, "/prometheus", d.Prometheus)
	}

	// wholesale deletes need an admin once ADMIN_EMAILS is set
	admin := session.RequireAdmin(len(d.AdminEmails) > 0)

	u := uploads{svc: d.Ingest, log: d.Log, max: d.MaxUploadBytes}
	mux.Post("/upload/business", u.business)
	mux.Post("/upload/search-terms", u.searchTerms)
	mux.Post("/upload", u.both)
	mux.With(admin).Delete("/data", func(w http.ResponseWriter, r *http.Request) {
		d.Ingest.Clear()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Route("/metrics", func(mr chi.Router) {
		mr.Get("/summary", query(d.Metrics.Summary))
		mr.Get("/skus", query(d.Metrics.QuerySKUs))
		mr.Get("/campaigns", query(d.Metrics.QueryCampaigns))
		mr.Get("/search-terms", query(d.Metrics.QuerySearchTerms))
		mr.Get("/match-types", query(d.Metrics.QueryMatchTypes))
		mr.Get("/daily", query(d.Metrics.QueryDaily))
	})

	c := costs{l: d.Ledger}
	mux.Route("/costs", func(cr chi.Router) {
		cr.Get("/", c.list)
		cr.With(admin).Put("/", c.replace)
		cr.Get("/{sku}", c.get)
		cr.Put("/{sku}", c.upsert)
		cr.Delete("/{sku}", c.delete)
	})

	return mux
}

// query adapts a metrics query to a JSON handler.
func query[T any](fn func(context.Context, url.Values) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := fn(r.Context(), r.URL.Query())
		if err != nil {
			status := 500
			if errors.Is(err, metrics.ErrBadQuery) {
				status = 400
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, rows)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}
