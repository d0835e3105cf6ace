package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/i18nhub/translation-migrator/pkg/environment"
)

// ListEventsHandler handles GET /api/migrations/v1alpha1/audit/events
// Query params: actor, recordId, eventType, pageSize, pageToken. The
// environment filter comes from the request scope.
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			Environment: environment.FromContext(r.Context()),
			Actor:       r.URL.Query().Get("actor"),
			RecordID:    r.URL.Query().Get("recordId"),
			EventType:   r.URL.Query().Get("eventType"),
		}

		pageSize := 50
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, err := store.List(filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}

		events := make([]auditEventResponse, len(records))
		for i, rec := range records {
			events[i] = recordToResponse(rec)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
		})
	}
}

// GetEventHandler handles GET /api/migrations/v1alpha1/audit/events/{eventId}
func GetEventHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventId")
		if eventID == "" {
			writeError(w, http.StatusBadRequest, "missing event ID")
			return
		}

		record, err := store.Get(eventID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get audit event: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("audit event %s not found", eventID))
			return
		}

		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

type auditEventResponse struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	EventType   string    `json:"eventType"`
	Actor       string    `json:"actor"`
	RecordID    string    `json:"recordId,omitempty"`
	Interface   string    `json:"interface,omitempty"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func recordToResponse(rec EventRecord) auditEventResponse {
	return auditEventResponse{
		ID:          rec.ID,
		Environment: rec.Environment,
		EventType:   rec.EventType,
		Actor:       rec.Actor,
		RecordID:    rec.RecordID,
		Interface:   rec.Interface,
		Outcome:     rec.Outcome,
		Message:     rec.Message,
		CreatedAt:   rec.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
