package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/pkg/adapters/memory"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleRequest() service.CreateDefinitionRequest {
	return service.CreateDefinitionRequest{
		Name: "Article",
		States: []domain.State{
			{ID: "draft", Name: "Draft", IsInitial: true},
			{ID: "review", Name: "Review"},
			{ID: "published", Name: "Published", IsFinal: true},
		},
		Actions: []domain.Action{
			{ID: "submit", Name: "Submit", FromStates: []string{"draft"}, ToState: "review", Enabled: true},
			{ID: "approve", Name: "Approve", FromStates: []string{"review"}, ToState: "published", Enabled: true},
			{ID: "reject", Name: "Reject", FromStates: []string{"review"}, ToState: "draft", Enabled: false},
		},
	}
}

func newService(opts ...service.Option) *service.Service {
	return service.New(memory.NewDefinitionStore(), memory.NewInstanceStore(), opts...)
}

func TestService_ArticleLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	def, err := svc.CreateDefinition(ctx, articleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID)
	assert.False(t, def.CreatedAt.IsZero())

	inst, err := svc.StartInstance(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", inst.CurrentStateID)

	_, err = svc.ExecuteAction(ctx, inst.ID, "submit")
	require.NoError(t, err)

	_, err = svc.ExecuteAction(ctx, inst.ID, "reject")
	assert.ErrorIs(t, err, domain.ErrActionDisabled)

	inst, err = svc.ExecuteAction(ctx, inst.ID, "APPROVE")
	require.NoError(t, err)
	assert.Equal(t, "published", inst.CurrentStateID)

	stored, err := svc.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 2)
	assert.Equal(t, "approve", stored.History[1].ActionID)

	_, err = svc.ExecuteAction(ctx, inst.ID, "approve")
	assert.ErrorIs(t, err, domain.ErrTerminalState)

	result, err := svc.ValidateActionExecution(ctx, inst.ID, "approve")
	require.NoError(t, err)
	assert.False(t, result.IsValid)

	byDef, err := svc.ListInstancesByDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Len(t, byDef, 1)

	all, err := svc.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	defs, err := svc.ListDefinitions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestService_CreateDefinition_DuplicateName(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CreateDefinition(ctx, articleRequest())
	require.NoError(t, err)

	req := articleRequest()
	req.Name = "ARTICLE"
	_, err = svc.CreateDefinition(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
	assert.EqualError(t, err, "Workflow definition with name 'ARTICLE' already exists")
}

func TestService_CreateDefinition_WhitespaceIsSignificant(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	req := articleRequest()
	req.Name = "Orders"
	_, err := svc.CreateDefinition(ctx, req)
	require.NoError(t, err)

	req = articleRequest()
	req.Name = "Orders "
	def, err := svc.CreateDefinition(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Orders ", def.Name)

	defs, err := svc.ListDefinitions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 2)
}

func TestService_CreateDefinition_Invalid(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	req := articleRequest()
	req.States[0].IsInitial = false

	_, err := svc.CreateDefinition(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Result.Errors, "Workflow definition must have exactly one initial state")

	defs, err := svc.ListDefinitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, defs, "invalid definitions are not stored")
}

func TestService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.GetDefinition(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)

	_, err = svc.StartInstance(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)

	_, err = svc.GetInstance(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

	_, err = svc.ExecuteAction(ctx, "missing", "submit")
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

	_, err = svc.ValidateActionExecution(ctx, "missing", "submit")
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
}

func TestService_StartInstance_NoInitialState(t *testing.T) {
	ctx := context.Background()
	defs := memory.NewDefinitionStore()
	svc := service.New(defs, memory.NewInstanceStore())

	// Stored directly, bypassing validation.
	require.NoError(t, defs.Save(ctx, &domain.Definition{
		ID:     "broken",
		Name:   "Broken",
		States: []domain.State{{ID: "a", Name: "A"}},
	}))

	_, err := svc.StartInstance(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrDefinitionInvalid)
	assert.True(t, domain.IsClientError(err))
}

func TestService_Hooks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	var (
		mu     sync.Mutex
		events []domain.EventType
		last   *domain.InstanceEvent
	)
	record := func(_ context.Context, e *domain.InstanceEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
		last = e
	}

	svc := newService(
		service.WithEngine(stateflow.New(stateflow.WithClock(func() time.Time { return now }))),
		service.WithLifecycleHooks(domain.LifecycleHooks{
			OnDefinitionCreated: func(_ context.Context, e *domain.DefinitionEvent) {
				mu.Lock()
				defer mu.Unlock()
				events = append(events, e.Type)
			},
			OnInstanceStarted: record,
			OnActionExecuted:  record,
			OnActionRejected:  record,
		}),
	)

	def, err := svc.CreateDefinition(ctx, articleRequest())
	require.NoError(t, err)
	assert.Equal(t, now, def.CreatedAt)

	inst, err := svc.StartInstance(ctx, def.ID)
	require.NoError(t, err)

	_, err = svc.ExecuteAction(ctx, inst.ID, "submit")
	require.NoError(t, err)
	require.NotNil(t, last.Diff)
	require.NotNil(t, last.Diff.CurrentStateID)
	assert.Equal(t, "review", *last.Diff.CurrentStateID)
	require.NotNil(t, last.Diff.HistoryDelta)
	assert.Len(t, last.Diff.HistoryDelta.Appended, 1)

	_, err = svc.ExecuteAction(ctx, inst.ID, "reject")
	require.Error(t, err)
	assert.Equal(t, domain.ActionDisabled, last.Kind)
	assert.Equal(t, "review", last.FromStateID)

	assert.Equal(t, []domain.EventType{
		domain.EventDefinitionCreated,
		domain.EventInstanceStarted,
		domain.EventActionExecuted,
		domain.EventActionRejected,
	}, events)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.InstanceEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *domain.InstanceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func TestService_Publisher(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(service.WithPublisher(pub))

	def, err := svc.CreateDefinition(ctx, articleRequest())
	require.NoError(t, err)
	inst, err := svc.StartInstance(ctx, def.ID)
	require.NoError(t, err)
	_, err = svc.ExecuteAction(ctx, inst.ID, "submit")
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.EventInstanceStarted, pub.events[0].Type)
	assert.Equal(t, domain.EventActionExecuted, pub.events[1].Type)
	assert.Equal(t, "submit", pub.events[1].Action)

	// Publishing failures never fail the operation.
	pub.err = errors.New("broker down")
	_, err = svc.ExecuteAction(ctx, inst.ID, "approve")
	assert.NoError(t, err)
}
