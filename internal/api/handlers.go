// Package api exposes the HTTP handlers of the health-data service.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/aggregate"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/observability"
)

// Routes is the machine-readable route list returned on 404.
var Routes = []string{
	"GET /health-data/{userId}",
	"POST /health-data",
	"GET /health-data-aggregated/{userId}",
	"GET /goals/{userId}",
	"POST /goals",
	"GET /healthz",
}

// Repository captures the persistence operations the handlers need.
type Repository interface {
	Insert(ctx context.Context, record domain.HealthRecord) (domain.HealthRecord, error)
	FindDuplicate(ctx context.Context, record domain.HealthRecord) (*domain.HealthRecord, error)
	ListByUser(ctx context.Context, userID string, limit, days int) ([]domain.HealthRecord, error)
	GetGoals(ctx context.Context, userID string) (*domain.Goals, error)
	UpsertGoals(ctx context.Context, goals domain.Goals) error
}

// Handler coordinates HTTP requests with the repository.
type Handler struct {
	repo   Repository
	logger *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(repo Repository, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health-data", h.healthData)
	mux.HandleFunc("/health-data/", h.healthDataByUser)
	mux.HandleFunc("/health-data-aggregated/", h.aggregatedByUser)
	mux.HandleFunc("/goals", h.goals)
	mux.HandleFunc("/goals/", h.goalsByUser)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/", h.notFound)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "NOT_FOUND",
		"code":    http.StatusNotFound,
		"message": "unknown route",
		"routes":  Routes,
	})
}

func (h *Handler) healthData(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createRecord(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "unsupported method")
	}
}

func (h *Handler) healthDataByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/health-data/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing userId")
		return
	}

	limit := intQuery(r, "limit", 0)
	days := intQuery(r, "days", 0)

	records, err := h.repo.ListByUser(r.Context(), userID, limit, days)
	if err != nil {
		h.serverError(w, "list records", err)
		return
	}
	observability.RecordRequest("health-data", "2xx")
	writeJSON(w, http.StatusOK, records)
}

// createRecordRequest is the POST /health-data payload.
type createRecordRequest struct {
	domain.HealthRecord
	ForceSubmit bool `json:"forceSubmit"`
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "unable to parse body")
		return
	}

	record := req.HealthRecord
	if strings.TrimSpace(record.UserID) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "userId is required")
		return
	}

	// Loose date representations are tolerated only at this boundary.
	day, err := domain.NormalizeDay(record.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "date must be a calendar day or timestamp")
		return
	}
	record.Date = day

	if err := record.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	if !req.ForceSubmit {
		existing, err := h.repo.FindDuplicate(r.Context(), record)
		if err != nil {
			h.serverError(w, "duplicate lookup", err)
			return
		}
		if existing != nil {
			observability.RecordDuplicateRejected()
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":      "DUPLICATE_DATA",
				"suggestion": "an identical entry already exists for this day; resubmit with forceSubmit to keep both",
			})
			return
		}
	}

	stored, err := h.repo.Insert(r.Context(), record)
	if err != nil {
		h.serverError(w, "insert record", err)
		return
	}

	observability.RecordRequest("health-data", "2xx")
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data": map[string]any{
			"id":        stored.ID,
			"userId":    stored.UserID,
			"date":      stored.Date,
			"createdAt": stored.CreatedAt,
		},
	})
}

func (h *Handler) aggregatedByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/health-data-aggregated/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing userId")
		return
	}

	days := intQuery(r, "days", 30)

	records, err := h.repo.ListByUser(r.Context(), userID, 0, days)
	if err != nil {
		h.serverError(w, "list records", err)
		return
	}

	observability.RecordRequest("health-data-aggregated", "2xx")
	writeJSON(w, http.StatusOK, aggregate.RollupByDay(records))
}

func (h *Handler) goals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "unsupported method")
		return
	}

	var goals domain.Goals
	if err := json.NewDecoder(r.Body).Decode(&goals); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "unable to parse body")
		return
	}
	if strings.TrimSpace(goals.UserID) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "userId is required")
		return
	}

	// Partial submissions default the omitted fields, then replace wholesale.
	goals = goals.FillDefaults()
	if err := h.repo.UpsertGoals(r.Context(), goals); err != nil {
		h.serverError(w, "upsert goals", err)
		return
	}

	observability.RecordRequest("goals", "2xx")
	writeJSON(w, http.StatusOK, goals)
}

func (h *Handler) goalsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "unsupported method")
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/goals/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing userId")
		return
	}

	goals, err := h.repo.GetGoals(r.Context(), userID)
	if err != nil {
		h.serverError(w, "get goals", err)
		return
	}
	if goals == nil {
		fallback := domain.DefaultGoals()
		fallback.UserID = userID
		goals = &fallback
	}

	observability.RecordRequest("goals", "2xx")
	writeJSON(w, http.StatusOK, goals)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Printf("%s: %v", op, err)
	observability.RecordRequest(op, "5xx")
	writeError(w, http.StatusInternalServerError, "SERVER_ERROR", err.Error())
}

// CORS answers preflight requests with permissive headers and decorates every
// response, matching the open-dashboard deployment model.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover converts panics into the structured 500 contract.
func Recover(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func intQuery(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"code":    status,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
