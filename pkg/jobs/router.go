package jobs

import (
	"github.com/go-chi/chi/v5"

	"github.com/i18nhub/translation-migrator/pkg/authz"
)

// Router creates a chi.Router for the job status API.
// When authorizer is non-nil, endpoints require jobs:list, jobs:get, and jobs:create permissions.
func Router(store *JobStore, authorizer authz.Authorizer) chi.Router {
	r := chi.NewRouter()

	listHandler := ListJobsHandler(store)
	getHandler := GetJobHandler(store)
	cancelHandler := CancelJobHandler(store)

	if authorizer != nil {
		r.Get("/", authz.RequirePermission(authorizer, "jobs", "list")(listHandler).ServeHTTP)
		r.Get("/{jobId}", authz.RequirePermission(authorizer, "jobs", "get")(getHandler).ServeHTTP)
		r.Post("/{jobId}:cancel", authz.RequirePermission(authorizer, "jobs", "create")(cancelHandler).ServeHTTP)
	} else {
		r.Get("/", listHandler)
		r.Get("/{jobId}", getHandler)
		r.Post("/{jobId}:cancel", cancelHandler)
	}

	return r
}
