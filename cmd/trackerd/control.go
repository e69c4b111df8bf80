package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/gateway"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/goals"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/tracker"
)

// controlAPI is the loopback surface the dashboard UI talks to. It never
// leaves the machine, so it carries no auth.
type controlAPI struct {
	core   *tracker.Core
	goals  *goals.Store
	logger *log.Logger
}

func (c *controlAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("/entries", c.entries)
	mux.HandleFunc("/dashboard", c.dashboard)
	mux.HandleFunc("/goals", c.handleGoals)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

type entryRequest struct {
	domain.HealthRecord
	ForceSubmit bool `json:"forceSubmit"`
}

func (c *controlAPI) entries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeControlError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeControlError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	receipt, err := c.core.AddEntry(r.Context(), req.HealthRecord, req.ForceSubmit)
	if err != nil {
		var vErr *domain.ValidationError
		switch {
		case errors.As(err, &vErr), errors.Is(err, domain.ErrNoMetrics):
			writeControlError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, gateway.ErrDuplicate):
			writeControlError(w, http.StatusConflict, err.Error())
		default:
			c.logger.Printf("add entry: %v", err)
			writeControlError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeControlJSON(w, http.StatusCreated, receipt)
}

func (c *controlAPI) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeControlError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	dash, err := c.core.Dashboard(r.Context())
	if err != nil {
		c.logger.Printf("dashboard: %v", err)
		writeControlError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeControlJSON(w, http.StatusOK, dash)
}

func (c *controlAPI) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := c.goals.Load(r.Context())
		if err != nil {
			c.logger.Printf("load goals: %v", err)
			writeControlError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeControlJSON(w, http.StatusOK, current)
	case http.MethodPost:
		var update domain.Goals
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeControlError(w, http.StatusBadRequest, "unable to parse body")
			return
		}
		saved, err := c.goals.Save(r.Context(), update)
		if err != nil {
			c.logger.Printf("save goals: %v", err)
			writeControlError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeControlJSON(w, http.StatusOK, saved)
	default:
		writeControlError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func writeControlError(w http.ResponseWriter, status int, message string) {
	writeControlJSON(w, status, map[string]any{"error": message, "code": status})
}

func writeControlJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
