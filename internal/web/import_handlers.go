package web

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/lmsales/sales-hub/internal/ingest"
)

// maxImportBytes caps the size of an uploaded import document.
const maxImportBytes = 10 << 20

// ImportReport is the response of POST /api/import.
type ImportReport struct {
	DryRun   bool               `json:"dry_run"`
	Accounts int                `json:"accounts"`
	Visits   int                `json:"visits"`
	Rejected []ingest.Rejection `json:"rejected"`
	Stored   *ingest.Result     `json:"stored,omitempty"`
}

// parserFor picks the document parser from the request content type.
func parserFor(contentType string) (func(io.Reader, *slog.Logger) (*ingest.Batch, error), bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	switch mt {
	case "application/json":
		return ingest.ParseJSON, true
	case "application/yaml", "application/x-yaml", "text/yaml":
		return ingest.ParseYAML, true
	case "text/csv":
		return ingest.ParseCSV, true
	}
	return nil, false
}

// apiImport validates an uploaded document and stores its valid records.
// With ?dry_run=true nothing is written.
func (s *Server) apiImport(w http.ResponseWriter, r *http.Request) {
	parse, ok := parserFor(r.Header.Get("Content-Type"))
	if !ok {
		apiError(w, "Content-Type must be application/json, application/yaml or text/csv", http.StatusUnsupportedMediaType)
		return
	}

	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			apiError(w, "dry_run must be true or false", http.StatusBadRequest)
			return
		}
		dryRun = b
	}

	batch, err := parse(http.MaxBytesReader(w, r.Body, maxImportBytes), s.logger)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.ObserveRejections(batch.Rejected)

	report := ImportReport{
		DryRun:   dryRun,
		Accounts: len(batch.Accounts),
		Visits:   len(batch.Visits),
		Rejected: batch.Rejected,
	}
	if report.Rejected == nil {
		report.Rejected = []ingest.Rejection{}
	}

	if !dryRun {
		res, err := ingest.Apply(r.Context(), batch, s.accounts, s.visits, s.logger)
		// An interrupted import may already have stored part of the batch.
		s.refresh(r.Context())
		if err != nil {
			apiError(w, "import interrupted: "+err.Error(), http.StatusInternalServerError)
			return
		}
		report.Stored = &res
	}

	apiJSON(w, report, http.StatusOK)
}
