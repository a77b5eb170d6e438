package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"jobline/internal/domain"
	"jobline/internal/engine"
	"jobline/internal/engine/auth"
	"jobline/internal/magiclink"
	"jobline/internal/quote"
	"jobline/internal/report"
)

type jobPath struct {
	JobID string `path:"job_id"`
}

type propertyPath struct {
	PropertyID string `path:"property_id"`
}

type jobBody struct {
	Body domain.Job `json:"body"`
}

func registerProperties(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-property",
		Method:        http.MethodPost,
		Path:          "/properties",
		Summary:       "Register a property",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreatePropertyRequest `json:"body"`
	}) (*struct {
		Body domain.Property `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProperty(ctx, actor, input.Body.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Property `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-properties",
		Method:      http.MethodGet,
		Path:        "/properties",
		Summary:     "List visible properties",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body PropertyList `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProperties(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PropertyList `json:"body"`
		}{Body: PropertyList{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-property",
		Method:      http.MethodGet,
		Path:        "/properties/{property_id}",
		Summary:     "Get property",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *propertyPath) (*struct {
		Body domain.Property `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.GetProperty(ctx, actor, input.PropertyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Property `json:"body"`
		}{Body: p}, nil
	})
}

func registerJobs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "recommend-job",
		Method:        http.MethodPost,
		Path:          "/jobs",
		Summary:       "Create a recommended job",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body RecommendRequest `json:"body"`
	}) (*jobBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.Recommend(ctx, actor, input.Body.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List jobs visible to the caller",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		PropertyID string `query:"property_id"`
		Status     string `query:"status"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body JobList `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		jobs, err := e.VisibleJobs(ctx, actor, engine.JobQuery{
			PropertyID: input.PropertyID,
			Status:     domain.Status(input.Status),
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body JobList `json:"body"`
		}{Body: JobList{Items: nonNilSlice(jobs)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{job_id}",
		Summary:     "Get job",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *jobPath) (*jobBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.GetJob(ctx, actor, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "compare-quote",
		Method:      http.MethodGet,
		Path:        "/jobs/{job_id}/quote",
		Summary:     "Compare the quoted price with the estimate",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body quote.Comparison `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		cmp, err := e.QuoteComparison(ctx, actor, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body quote.Comparison `json:"body"`
		}{Body: cmp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "suggest-materials",
		Method:      http.MethodGet,
		Path:        "/jobs/{job_id}/materials",
		Summary:     "Suggest materials for a job",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body MaterialList `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.SuggestMaterials(ctx, actor, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MaterialList `json:"body"`
		}{Body: MaterialList{JobID: input.JobID, Items: nonNilSlice(items)}}, nil
	})
}

type transitionFunc func(ctx context.Context, actor auth.Actor, jobID string) (domain.Job, error)

func registerTransitions(api huma.API, e engine.Engine) {
	transitionErrors := []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict}
	simple := []struct {
		id, path, summary string
		fn                transitionFunc
	}{
		{"send-job", "/jobs/{job_id}/send", "Send a recommended job to professionals", e.Send},
		{"reject-quote", "/jobs/{job_id}/reject-quote", "Reject the current quote", e.RejectQuote},
		{"accept-job", "/jobs/{job_id}/accept", "Accept a lead or a quote", e.Accept},
		{"begin-job", "/jobs/{job_id}/begin", "Start work and instantiate the checklist", e.Begin},
	}
	for _, t := range simple {
		fn := t.fn
		huma.Register(api, huma.Operation{
			OperationID: t.id,
			Method:      http.MethodPost,
			Path:        t.path,
			Summary:     t.summary,
			Errors:      transitionErrors,
		}, func(ctx context.Context, input *jobPath) (*jobBody, error) {
			actor, authErr := actorFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			j, err := fn(ctx, actor, input.JobID)
			if err != nil {
				return nil, handleError(err)
			}
			return &jobBody{Body: j}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "quote-job",
		Method:      http.MethodPost,
		Path:        "/jobs/{job_id}/quote",
		Summary:     "Quote a price for a sent job",
		Errors:      append([]int{http.StatusBadRequest}, transitionErrors...),
	}, func(ctx context.Context, input *struct {
		JobID string       `path:"job_id"`
		Body  QuoteRequest `json:"body"`
	}) (*jobBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := e.Quote(ctx, actor, input.JobID, input.Body.Price)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-job",
		Method:      http.MethodPost,
		Path:        "/jobs/{job_id}/complete",
		Summary:     "Complete a job once the checklist is satisfied",
		Errors:      append([]int{http.StatusUnprocessableEntity}, transitionErrors...),
	}, func(ctx context.Context, input *struct {
		JobID string           `path:"job_id"`
		Body  *CompleteRequest `json:"body,omitempty" required:"false"`
	}) (*jobBody, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var after []string
		if input.Body != nil {
			after = input.Body.AfterImages
		}
		j, err := e.Complete(ctx, actor, input.JobID, after...)
		if err != nil {
			return nil, handleError(err)
		}
		return &jobBody{Body: j}, nil
	})
}

func registerChecklist(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-checklist",
		Method:      http.MethodGet,
		Path:        "/jobs/{job_id}/checklist",
		Summary:     "Get a job's checklist and progress",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body engine.ChecklistView `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		view, err := e.Checklist(ctx, actor, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ChecklistView `json:"body"`
		}{Body: view}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-checklist-item",
		Method:      http.MethodPost,
		Path:        "/jobs/{job_id}/checklist/{item_id}/toggle",
		Summary:     "Toggle one checklist item",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		JobID  string `path:"job_id"`
		ItemID string `path:"item_id"`
	}) (*struct {
		Body engine.ChecklistView `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		view, err := e.ToggleChecklistItem(ctx, actor, input.JobID, input.ItemID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ChecklistView `json:"body"`
		}{Body: view}, nil
	})
}

func registerLinks(api huma.API, e engine.Engine) {
	issue := func(kind magiclink.Kind) func(ctx context.Context, contextID string) (*struct {
		Body magiclink.Token `json:"body"`
	}, error) {
		return func(ctx context.Context, contextID string) (*struct {
			Body magiclink.Token `json:"body"`
		}, error) {
			actor, authErr := actorFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			tok, err := e.IssueAccessLink(ctx, actor, kind, contextID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body magiclink.Token `json:"body"`
			}{Body: tok}, nil
		}
	}
	issueJob := issue(magiclink.KindJob)
	issueProperty := issue(magiclink.KindProperty)

	huma.Register(api, huma.Operation{
		OperationID:   "issue-job-link",
		Method:        http.MethodPost,
		Path:          "/jobs/{job_id}/links",
		Summary:       "Issue a read-only magic link for a job",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body magiclink.Token `json:"body"`
	}, error) {
		return issueJob(ctx, input.JobID)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "issue-property-link",
		Method:        http.MethodPost,
		Path:          "/properties/{property_id}/links",
		Summary:       "Issue a read-only magic link for a property",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *propertyPath) (*struct {
		Body magiclink.Token `json:"body"`
	}, error) {
		return issueProperty(ctx, input.PropertyID)
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "property-report",
		Method:      http.MethodGet,
		Path:        "/properties/{property_id}/report",
		Summary:     "Summarize completed work on a property",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *propertyPath) (*struct {
		Body report.Report `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.PropertyReport(ctx, actor, input.PropertyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body report.Report `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-report",
		Method:      http.MethodPost,
		Path:        "/properties/{property_id}/export",
		Summary:     "Build a bank or insurance export",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PropertyID string        `path:"property_id"`
		Body       ExportRequest `json:"body"`
	}) (*struct {
		Body report.ExportPayload `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		out, err := e.ExportReport(ctx, actor, input.PropertyID, report.ExportKind(input.Body.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body report.ExportPayload `json:"body"`
		}{Body: out}, nil
	})
}

// registerAccess serves the public read-only magic link view. It sits
// outside the authenticated base path: the token is the credential.
func registerAccess(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-access-link",
		Method:      http.MethodGet,
		Path:        "/access/{token}",
		Summary:     "Read-only view behind a magic link",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests},
	}, func(ctx context.Context, input *struct {
		Token string `path:"token"`
	}) (*struct {
		Body engine.AccessView `json:"body"`
	}, error) {
		view, err := e.ResolveAccessLink(ctx, input.Token)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.AccessView `json:"body"`
		}{Body: view}, nil
	})
}
