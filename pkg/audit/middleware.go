package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/i18nhub/translation-migrator/pkg/authz"
	"github.com/i18nhub/translation-migrator/pkg/environment"
)

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// Middleware creates middleware that captures audit events for mutating API
// requests. It wraps the ResponseWriter to capture the status code, then
// records an EventRecord after the handler completes.
func Middleware(store *Store, cfg *AuditConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip if audit is disabled.
			if cfg == nil || !cfg.Enabled || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Skip pure browsing.
			if !isAuditedEndpoint(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(capture, r)

			statusCode := capture.statusCode
			outcome := outcomeFromStatus(statusCode)

			// Skip denied actions if LogDenied is false.
			if outcome == "denied" && !cfg.LogDenied {
				return
			}

			ctx := r.Context()
			env := environment.FromContext(ctx)
			if env == "" {
				env = "default"
			}

			actor := authz.AnonymousUser
			if id, ok := authz.IdentityFromContext(ctx); ok {
				actor = id.User
			}

			requestID := middleware.GetReqID(ctx)
			verb := extractActionVerb(r.Method, r.URL.Path)

			event := &EventRecord{
				ID:          uuid.New().String(),
				Environment: env,
				EventType:   "api." + verb,
				Actor:       actor,
				RecordID:    extractRecordID(r.URL.Path),
				Outcome:     outcome,
				Message: fmt.Sprintf("%s %s -> %d in %s",
					r.Method, r.URL.Path, statusCode, time.Since(startTime).Round(time.Millisecond)),
				CreatedAt: startTime,
			}

			// Best-effort write: don't fail the request if audit write fails.
			if err := store.Append(event); err != nil {
				logger.Error("failed to write audit event", "error", err, "requestID", requestID)
			}
		})
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == http.StatusForbidden:
		return "denied"
	default:
		return "failure"
	}
}
