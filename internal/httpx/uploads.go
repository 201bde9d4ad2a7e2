package httpx

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/AngelCh415/amazon-ppc-etl/internal/ingest"
	"github.com/AngelCh415/amazon-ppc-etl/internal/session"
)

const (
	fieldFile       = "file"
	fieldBusiness   = "business"
	fieldTerms      = "search_terms"
	fieldReportDate = "report_date"
)

type uploads struct {
	svc *ingest.Service
	log *slog.Logger
	max int64
}

func (u uploads) business(w http.ResponseWriter, r *http.Request) {
	if !u.parseForm(w, r) {
		return
	}
	f, err := formFile(r, fieldFile)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	out, err := u.svc.LoadBusiness(r.Context(), session.FromContext(r.Context()), f, r.FormValue(fieldReportDate))
	u.respond(w, r, out, err)
}

func (u uploads) searchTerms(w http.ResponseWriter, r *http.Request) {
	if !u.parseForm(w, r) {
		return
	}
	f, err := formFile(r, fieldFile)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	out, err := u.svc.LoadSearchTerms(r.Context(), session.FromContext(r.Context()), f)
	u.respond(w, r, out, err)
}

// both accepts the business report and the search term report in one form.
func (u uploads) both(w http.ResponseWriter, r *http.Request) {
	if !u.parseForm(w, r) {
		return
	}
	bf, err := formFile(r, fieldBusiness)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	tf, err := formFile(r, fieldTerms)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	out, err := u.svc.LoadBoth(r.Context(), session.FromContext(r.Context()), bf, tf, r.FormValue(fieldReportDate))
	u.respond(w, r, out, err)
}

func (u uploads) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if u.max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.max)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "multipart form required: "+err.Error(), 400)
		return false
	}
	return true
}

func (u uploads) respond(w http.ResponseWriter, r *http.Request, out ingest.UploadResult, err error) {
	switch {
	case errors.Is(err, ingest.ErrInvalidReportDate):
		http.Error(w, err.Error(), 400)
	case err != nil:
		u.log.Error("upload failed", slog.String("err", err.Error()), slog.String("path", r.URL.Path))
		http.Error(w, err.Error(), 500)
	default:
		writeJSON(w, out)
	}
}

func formFile(r *http.Request, field string) (ingest.File, error) {
	fh, hdr, err := r.FormFile(field)
	if err != nil {
		return ingest.File{}, fmt.Errorf("form field %q must carry a file", field)
	}
	defer fh.Close()
	b, err := io.ReadAll(fh)
	if err != nil {
		return ingest.File{}, fmt.Errorf("read %s: %w", field, err)
	}
	return ingest.File{Name: hdr.Filename, Content: b}, nil
}
