// Package api exposes the administrative HTTP surface: runtime config lists,
// the cached-postings view, company blocking, per-posting dismissal, log
// history, and the two WebSocket endpoints. Everything here is a thin layer
// over the pipeline's own stores; the fetch cycle never depends on it.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/logstream"
	"velocity/monitor-service/internal/model"
	"velocity/monitor-service/internal/settings"
	"velocity/monitor-service/internal/ws"
)

const serviceVersion = "1.0.0"

// Deps wires the handler's collaborators.
type Deps struct {
	Seen    dedup.SeenStore
	Lists   settings.ListStore
	JobsHub *ws.Hub
	LogsHub *ws.Hub
	LogCore *logstream.Core
	Log     *zap.SugaredLogger
}

// NewHandler builds the router.
func NewHandler(deps Deps) http.Handler {
	log := deps.Log.Named("api")

	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/api/config", handleGetAllConfig(deps))
	r.Get("/api/config/{name}", handleGetConfig(deps))
	r.Put("/api/config/{name}", handlePutConfig(deps, log))
	r.Get("/api/jobs/cached", handleCachedJobs(deps, log))
	r.Post("/api/jobs/dismiss", handleDismiss(deps, log))
	r.Post("/api/companies/block", handleBlockCompany(deps, log))
	r.Get("/api/logs", handleLogs(deps))
	r.Get("/ws/jobs", deps.JobsHub.ServeWS)
	r.Get("/ws/logs", deps.LogsHub.ServeWS)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "monitor-service",
		"version": serviceVersion,
	})
}

func handleGetAllConfig(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string][]string, len(settings.Names))
		for _, name := range settings.Names {
			out[name] = deps.Lists.Get(r.Context(), name)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetConfig(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if settings.Default(name) == nil {
			httpError(w, http.StatusNotFound, "unknown config list %q", name)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":   name,
			"values": deps.Lists.Get(r.Context(), name),
		})
	}
}

func handlePutConfig(deps Deps, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var values []string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			httpError(w, http.StatusBadRequest, "body must be a JSON string array: %v", err)
			return
		}

		if err := deps.Lists.Set(r.Context(), name, values); err != nil {
			httpError(w, http.StatusBadRequest, "set %s: %v", name, err)
			return
		}
		log.Infow("config replaced", "list", name, "items", len(values))
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "values": values})
	}
}

func handleCachedJobs(deps Deps, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Seen.Scan(r.Context())
		if err != nil {
			log.Errorw("scan cached jobs", "error", err)
			httpError(w, http.StatusInternalServerError, "scan failed: %v", err)
			return
		}
		if records == nil {
			records = []dedup.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count": len(records),
			"jobs":  records,
		})
	}
}

type dismissRequest struct {
	Source     string `json:"source"`
	ExternalID string `json:"externalId"`
}

func handleDismiss(deps Deps, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dismissRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid body: %v", err)
			return
		}
		if req.Source == "" || req.ExternalID == "" {
			httpError(w, http.StatusBadRequest, "source and externalId are required")
			return
		}

		key := dedup.Key(req.Source, req.ExternalID)
		if err := deps.Seen.Delete(r.Context(), key); err != nil {
			httpError(w, http.StatusInternalServerError, "delete %s: %v", key, err)
			return
		}

		log.Infow("posting dismissed", "key", key)
		deps.JobsHub.Broadcast(model.Event{Type: model.EventJobDismissed, Data: map[string]string{
			"source":     req.Source,
			"externalId": req.ExternalID,
		}})
		writeJSON(w, http.StatusOK, map[string]string{"dismissed": key})
	}
}

type blockRequest struct {
	Company string `json:"company"`
}

// handleBlockCompany removes every cached record matching the company and
// appends it to the blocked list, so it neither re-alerts from cache nor
// passes the filter in future cycles.
func handleBlockCompany(deps Deps, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req blockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid body: %v", err)
			return
		}
		if req.Company == "" {
			httpError(w, http.StatusBadRequest, "company is required")
			return
		}

		removed, err := dedup.RemoveCompany(r.Context(), deps.Seen, req.Company)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "remove cached records: %v", err)
			return
		}

		blocked := deps.Lists.Get(r.Context(), settings.BlockedCompanies)
		if !containsFold(blocked, req.Company) {
			blocked = append(blocked, req.Company)
			if err := deps.Lists.Set(r.Context(), settings.BlockedCompanies, blocked); err != nil {
				httpError(w, http.StatusInternalServerError, "update blocked list: %v", err)
				return
			}
		}

		identities := make([]map[string]string, 0, len(removed))
		for _, rec := range removed {
			identities = append(identities, map[string]string{
				"source":     rec.Job.Source,
				"externalId": rec.Job.ExternalID,
			})
		}

		log.Infow("company blocked", "company", req.Company, "removed", len(removed))
		deps.JobsHub.Broadcast(model.Event{Type: model.EventCompanyBlocked, Data: map[string]any{
			"company": req.Company,
			"removed": identities,
		}})
		writeJSON(w, http.StatusOK, map[string]any{
			"company": req.Company,
			"removed": len(removed),
		})
	}
}

func handleLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		history := deps.LogCore.History()
		writeJSON(w, http.StatusOK, map[string]any{
			"count": len(history),
			"logs":  history,
		})
	}
}

func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
