package http

import (
	"reflect"
	"strings"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/go-playground/validator/v10"
)

type stateDTO struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	IsInitial   bool   `json:"isInitial"`
	IsFinal     bool   `json:"isFinal"`
	Description string `json:"description,omitempty"`
}

type actionDTO struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	FromStates  []string `json:"fromStates"`
	ToState     string   `json:"toState"`
	Enabled     *bool    `json:"enabled"` // defaults to true
	Description string   `json:"description,omitempty"`
}

type createDefinitionRequest struct {
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description,omitempty"`
	States      []stateDTO  `json:"states" validate:"dive"`
	Actions     []actionDTO `json:"actions" validate:"dive"`
}

func (r createDefinitionRequest) toService() service.CreateDefinitionRequest {
	req := service.CreateDefinitionRequest{
		Name:        r.Name,
		Description: r.Description,
		States:      make([]domain.State, 0, len(r.States)),
		Actions:     make([]domain.Action, 0, len(r.Actions)),
	}
	for _, s := range r.States {
		req.States = append(req.States, domain.State(s))
	}
	for _, a := range r.Actions {
		enabled := true
		if a.Enabled != nil {
			enabled = *a.Enabled
		}
		req.Actions = append(req.Actions, domain.Action{
			ID:          a.ID,
			Name:        a.Name,
			FromStates:  a.FromStates,
			ToState:     a.ToState,
			Enabled:     enabled,
			Description: a.Description,
		})
	}
	return req
}

type executeActionRequest struct {
	ActionName string `json:"actionName" validate:"required"`
}

// envelope wraps every successful response body.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors renders validator failures as "path: rule" strings, e.g. "states[0].id: required".
func fieldErrors(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if _, rest, found := strings.Cut(path, "."); found {
			path = rest
		}
		out = append(out, path+": "+fe.Tag())
	}
	return out
}
