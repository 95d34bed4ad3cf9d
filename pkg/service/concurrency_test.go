package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stateflow/pkg/adapters/memory"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.InstanceStore
}

func (s *SlowStore) Save(ctx context.Context, inst *domain.Instance) error {
	time.Sleep(10 * time.Millisecond)
	return s.InstanceStore.Save(ctx, inst)
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Instance, error) {
	time.Sleep(10 * time.Millisecond)
	return s.InstanceStore.Load(ctx, id)
}

func TestService_ConcurrentExecuteAction(t *testing.T) {
	ctx := context.Background()
	svc := service.New(memory.NewDefinitionStore(), &SlowStore{memory.NewInstanceStore()})

	def, err := svc.CreateDefinition(ctx, service.CreateDefinitionRequest{
		Name: "Counter",
		States: []domain.State{
			{ID: "counting", Name: "Counting", IsInitial: true},
			{ID: "done", Name: "Done", IsFinal: true},
		},
		Actions: []domain.Action{
			{ID: "tick", Name: "Tick", FromStates: []string{"counting"}, ToState: "counting", Enabled: true},
			{ID: "stop", Name: "Stop", FromStates: []string{"counting"}, ToState: "done", Enabled: true},
		},
	})
	require.NoError(t, err)

	inst, err := svc.StartInstance(ctx, def.ID)
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExecuteAction(ctx, inst.ID, "tick")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	final, err := svc.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Len(t, final.History, workers, "every concurrent action must be recorded")
}

func TestService_ConcurrentCreateDefinition_SameName(t *testing.T) {
	ctx := context.Background()
	svc := service.New(memory.NewDefinitionStore(), memory.NewInstanceStore())

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateDefinition(ctx, articleRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, domain.ErrDuplicateName)
		}
	}
	assert.Equal(t, 1, created)
}
