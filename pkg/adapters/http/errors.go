package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

// validationErrors is the extension carried by validation problems.
type validationErrors struct {
	Errors []string `json:"errors"`
}

func withErrors(p *problems.Problem, errs []string) *problems.ExtendedProblem[validationErrors] {
	return problems.Extend(p, validationErrors{Errors: errs})
}

func writeProblem(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string, errs ...string) {
	problem := problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(r.URL.Path).
		WithType("validation_error").
		WithDetail(detail)

	if len(errs) > 0 {
		writeProblem(w, http.StatusBadRequest, withErrors(problem, errs))
		return
	}
	writeProblem(w, http.StatusBadRequest, problem)
}

// handleServiceError maps orchestrator errors to problem documents.
// notFoundStatus lets routes that historically answer 400 for unknown entities keep doing so.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundStatus int) {
	var (
		ve *domain.ValidationError
		te *domain.TransitionError
	)

	switch {
	case errors.As(err, &ve):
		problem := problems.NewStatusProblem(http.StatusBadRequest).
			WithInstance(r.URL.Path).
			WithType("validation_error").
			WithDetail(err.Error())
		writeProblem(w, http.StatusBadRequest, withErrors(problem, ve.Result.Errors))

	case errors.Is(err, domain.ErrDuplicateName):
		writeProblem(w, http.StatusBadRequest, problems.NewStatusProblem(http.StatusBadRequest).
			WithInstance(r.URL.Path).
			WithType("duplicate_name").
			WithDetail(err.Error()))

	case errors.Is(err, domain.ErrDefinitionNotFound), errors.Is(err, domain.ErrInstanceNotFound):
		writeProblem(w, notFoundStatus, problems.NewStatusProblem(notFoundStatus).
			WithInstance(r.URL.Path).
			WithType("not_found").
			WithDetail(err.Error()))

	case errors.As(err, &te):
		writeProblem(w, http.StatusBadRequest, problems.NewStatusProblem(http.StatusBadRequest).
			WithInstance(r.URL.Path).
			WithType(string(te.Kind)).
			WithDetail(err.Error()))

	default:
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
		writeProblem(w, http.StatusInternalServerError, problems.NewStatusProblem(http.StatusInternalServerError).
			WithInstance(r.URL.Path).
			WithType("internal_error").
			WithDetail("internal server error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Response encode failed", "err", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}
