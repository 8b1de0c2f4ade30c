package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/ingest"
	"github.com/patternlens/transaction-pattern-backend/internal/metrics"
	"github.com/patternlens/transaction-pattern-backend/internal/service/analysis"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// Handler exposes the HTTP surface over the dataset store and the analysis
// orchestrator.
type Handler struct {
	store    *transaction.Store
	loader   *ingest.Loader
	analysis *analysis.Service
	version  string
	logger   *slog.Logger
}

// NewHandler wires the endpoint handlers.
func NewHandler(store *transaction.Store, loader *ingest.Loader, analysisSvc *analysis.Service, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		loader:   loader,
		analysis: analysisSvc,
		version:  version,
		logger:   logger,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"status":       "healthy",
		"version":      h.version,
		"transactions": h.store.Len(),
	})
}

// handleUploadJSON replaces the dataset with a JSON array of transactions.
func (h *Handler) handleUploadJSON(w http.ResponseWriter, r *http.Request) {
	var records []transaction.Transaction
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err := decoder.Decode(&records); err != nil {
		writeError(w, errors.NewValidationError("INVALID_BODY", "request body must be a JSON array of transactions").WithCause(err))
		return
	}
	h.replaceDataset(w, r, records)
}

// handleUploadCSV replaces the dataset from a multipart CSV upload.
func (h *Handler) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, errors.NewValidationError("INVALID_UPLOAD", "expected a multipart form upload").WithCause(err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, errors.NewValidationError("MISSING_FILE", `multipart form must include a "file" field`))
		return
	}
	defer file.Close()

	records, err := h.loader.Load(file)
	if err != nil {
		writeError(w, err)
		return
	}
	h.replaceDataset(w, r, records)
}

func (h *Handler) replaceDataset(w http.ResponseWriter, r *http.Request, records []transaction.Transaction) {
	if len(records) == 0 {
		writeError(w, errors.ErrEmptyDataset)
		return
	}
	if err := h.store.Replace(records); err != nil {
		writeError(w, err)
		return
	}
	metrics.SetDatasetSize(h.store.Len())

	h.logger.InfoContext(r.Context(), "dataset replaced",
		slog.Int("transactions", h.store.Len()),
		slog.String("fingerprint", h.store.Fingerprint()),
	)
	writeSuccess(w, map[string]interface{}{
		"transactions_loaded": h.store.Len(),
		"dataset_fingerprint": h.store.Fingerprint(),
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if h.store.Empty() {
		writeError(w, errors.ErrNoDataset)
		return
	}
	writeSuccess(w, transaction.Summarize(h.store.Snapshot()))
}

func (h *Handler) handlePatterns(w http.ResponseWriter, r *http.Request) {
	data, err := h.analysis.Patterns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, data)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	result, err := h.analysis.Analyze(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result,
		Cached:  result.Cached,
		Mock:    result.Mock,
		Partial: result.Partial,
	})
}

func (h *Handler) handleAnalyzeProgressive(w http.ResponseWriter, r *http.Request) {
	prog, err := h.analysis.AnalyzeProgressive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	result := prog.Result
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"result": result,
			"tasks":  prog.Tasks,
		},
		Cached:  result.Cached,
		Mock:    result.Mock,
		Partial: result.Partial,
	})
}

func (h *Handler) handleThreads(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.Threads(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, report)
}
