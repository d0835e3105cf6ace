package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/i18nhub/translation-migrator/pkg/authz"
	"github.com/i18nhub/translation-migrator/pkg/engine"
	"github.com/i18nhub/translation-migrator/pkg/environment"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
	"github.com/i18nhub/translation-migrator/pkg/jobs"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
	"github.com/i18nhub/translation-migrator/pkg/livestore"
)

// actorFromRequest resolves the acting user placed in context by the
// identity middleware.
func actorFromRequest(r *http.Request) string {
	if id, ok := authz.IdentityFromContext(r.Context()); ok && id.User != "" {
		return id.User
	}
	return authz.AnonymousUser
}

// discoverHandler handles POST /discover. It scans remote storage for the
// requested interfaces and records every unseen bundle as a pending
// migration. With autoApply the freshly created records are applied as one
// batch in the same request.
func discoverHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req discoverRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
				return
			}
		}

		tags, err := interfaces.ParseSet(req.Interfaces)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		env := environment.FromContext(r.Context())
		actor := actorFromRequest(r)

		if req.AutoApply {
			report, batch, err := eng.DiscoverMany(r.Context(), env, tags, true, actor)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"discovery": discoveryToResponse(report),
				"batch":     batch,
			})
			return
		}

		report, err := eng.Discover(r.Context(), env, tags, actor)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"discovery": discoveryToResponse(report)})
	}
}

// listMigrationsHandler handles GET /migrations.
// Query params: interface, status, batch, pageSize, pageToken.
func listMigrationsHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ledger.ListFilter{
			Environment: environment.FromContext(r.Context()),
			BatchNumber: r.URL.Query().Get("batch"),
			Status:      ledger.Status(r.URL.Query().Get("status")),
		}
		if v := r.URL.Query().Get("interface"); v != "" {
			tag, err := interfaces.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter.Interface = tag
		}

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := eng.Ledger().List(filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list migrations: %v", err))
			return
		}

		resp := migrationList{
			Migrations:    make([]migrationResponse, len(records)),
			NextPageToken: nextToken,
			TotalSize:     total,
		}
		for i, rec := range records {
			resp.Migrations[i] = recordToResponse(rec)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// getMigrationHandler handles GET /migrations/{migrationId}.
func getMigrationHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := eng.Ledger().Get(chi.URLParam(r, "migrationId"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

// previewMigrationHandler handles GET /migrations/{migrationId}/preview.
// Read-only: computes the diff without touching record status or live rows.
func previewMigrationHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := eng.Preview(r.Context(), chi.URLParam(r, "migrationId"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// downloadMigrationHandler handles GET /migrations/{migrationId}/download.
// Streams the raw bundle bytes as stored remotely.
func downloadMigrationHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, record, err := eng.Download(r.Context(), chi.URLParam(r, "migrationId"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// applyMigrationHandler handles POST /migrations/{migrationId}:apply.
// With async the apply runs on the job queue and a 202 with the job ID is
// returned instead of the apply result.
func applyMigrationHandler(eng *engine.Engine, jobStore *jobs.JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recordID := chi.URLParam(r, "migrationId")

		var req applyRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
				return
			}
		}

		if req.Async {
			// Queued applies always run with both safeguards on.
			enqueueJob(w, r, jobStore, &jobs.ApplyJob{
				Operation:      jobs.OpApply,
				RecordID:       recordID,
				IdempotencyKey: req.IdempotencyKey,
			})
			return
		}

		result, err := eng.ApplyWithOptions(r.Context(), recordID, actorFromRequest(r), req.options())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// rollbackMigrationHandler handles POST /migrations/{migrationId}:rollback.
func rollbackMigrationHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := eng.Rollback(r.Context(), chi.URLParam(r, "migrationId"), actorFromRequest(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// retryMigrationHandler handles POST /migrations/{migrationId}:retry.
func retryMigrationHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := eng.Retry(r.Context(), chi.URLParam(r, "migrationId"), actorFromRequest(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// applyBatchHandler handles POST /migrations:applyBatch.
func applyBatchHandler(eng *engine.Engine, jobStore *jobs.JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if len(req.RecordIDs) == 0 {
			writeError(w, http.StatusBadRequest, "recordIds must not be empty")
			return
		}

		if req.Async {
			enqueueJob(w, r, jobStore, &jobs.ApplyJob{
				Operation:      jobs.OpApplyBatch,
				RecordIDs:      jobs.StringList(req.RecordIDs),
				IdempotencyKey: req.IdempotencyKey,
			})
			return
		}

		result, err := eng.ApplyMany(r.Context(), req.RecordIDs, actorFromRequest(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// retryFailedHandler handles POST /migrations:retryFailed. It sweeps every
// failed record in the environment whose failure was transient.
func retryFailedHandler(eng *engine.Engine, jobStore *jobs.JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req retryFailedRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
				return
			}
		}

		env := environment.FromContext(r.Context())

		if req.Async {
			enqueueJob(w, r, jobStore, &jobs.ApplyJob{
				Operation:      jobs.OpRetryFailed,
				IdempotencyKey: req.IdempotencyKey,
			})
			return
		}

		result, err := eng.RetryFailed(r.Context(), env, actorFromRequest(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// listTranslationsHandler handles GET /translations/{interface}: the live
// key/value state for one interface in the scoped environment.
func listTranslationsHandler(live *livestore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag, err := interfaces.Parse(chi.URLParam(r, "interface"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		env := environment.FromContext(r.Context())
		values, err := live.Values(env, tag)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read translations: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"environment":  env,
			"interface":    tag,
			"translations": values,
		})
	}
}

// enqueueJob queues an async operation and answers 202 with the job ID.
func enqueueJob(w http.ResponseWriter, r *http.Request, jobStore *jobs.JobStore, job *jobs.ApplyJob) {
	if jobStore == nil {
		writeError(w, http.StatusServiceUnavailable, "async execution is not enabled")
		return
	}

	job.ID = uuid.New().String()
	job.Environment = environment.FromContext(r.Context())
	job.RequestedBy = actorFromRequest(r)

	queued, err := jobStore.Enqueue(job)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to enqueue job: %v", err))
		return
	}

	writeJSON(w, http.StatusAccepted, enqueuedJobResponse{
		JobID:     queued.ID,
		State:     string(queued.State),
		Operation: string(queued.Operation),
	})
}

// writeEngineError maps classified engine errors onto HTTP status codes.
// Conflicts are 409, integrity failures 422, transient storage failures 502.
func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	switch engine.KindOf(err) {
	case engine.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case engine.KindIntegrity:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case engine.KindTransient:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
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
