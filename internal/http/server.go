package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ignatij/memoflow/internal/log"
	"github.com/ignatij/memoflow/internal/service"
	"github.com/ignatij/memoflow/pkg/history"
	"github.com/ignatij/memoflow/pkg/models"
	"github.com/pkg/errors"
)

// StartServer exposes the run-history surface: /health, /runs, /runs/{id}.
func StartServer(port string, store history.Store) error {
	svc := service.NewHistoryService(store)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/runs", RunsHandler(svc))
	mux.HandleFunc("/runs/", RunByIDHandler(svc))

	log.GetLogger().Infof("Starting memoflow server on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "memoflow server is running")
}

func RunsHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listRunsHTTP(w, r, svc)
		case http.MethodPut:
			updateRunStatusHTTP(w, r, svc)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// RunByIDHandler serves GET /runs/{id}.
func RunByIDHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		raw := strings.TrimPrefix(r.URL.Path, "/runs/")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid run ID %q", raw))
			return
		}
		run, err := svc.GetRun(id)
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Run %d not found", id))
			return
		}
		if err != nil {
			log.GetLogger().Errorf("Failed to get run %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get run: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func listRunsHTTP(w http.ResponseWriter, r *http.Request, svc *service.HistoryService) {
	taskName := r.URL.Query().Get("task")
	runs, err := svc.ListRuns(taskName)
	if err != nil {
		log.GetLogger().Errorf("Failed to list runs: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func updateRunStatusHTTP(w http.ResponseWriter, r *http.Request, svc *service.HistoryService) {
	var req struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		ErrorMsg string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := svc.UpdateRunStatus(req.ID, req.Status, req.ErrorMsg); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Run %d not found", req.ID))
			return
		}
		log.GetLogger().Errorf("Failed to update run status: %v", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to update run status: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      req.ID,
		"message": fmt.Sprintf("Updated the status to '%s' of the run with ID: %d", req.Status, req.ID),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
