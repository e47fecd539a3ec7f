package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/civic-contracts-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRecordingService is a mock implementation of the RecordingService interface
type MockRecordingService struct {
	mock.Mock
}

func (m *MockRecordingService) RecordEvent(ctx context.Context, event *shared.ReconciliationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ RecordingService = (*MockRecordingService)(nil)

func newTestWorkerPool(t *testing.T, base RecordingService, size int) *WorkerPoolRecordingService {
	t.Helper()
	pool, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: size}, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)
	return pool
}

func TestWorkerPoolRecordingService_RecordEvent(t *testing.T) {
	t.Run("delegates to base service", func(t *testing.T) {
		base := new(MockRecordingService)
		pool := newTestWorkerPool(t, base, 2)
		event := committedEvent()

		base.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *shared.ReconciliationEvent) bool {
			return e.EventID == event.EventID
		})).Return(nil)

		err := pool.RecordEvent(context.Background(), event)

		assert.NoError(t, err)
		base.AssertExpectations(t)
	})

	t.Run("propagates base service error", func(t *testing.T) {
		base := new(MockRecordingService)
		pool := newTestWorkerPool(t, base, 2)
		event := committedEvent()
		baseErr := errors.New("write failed")

		base.On("RecordEvent", mock.Anything, mock.Anything).Return(baseErr)

		err := pool.RecordEvent(context.Background(), event)

		assert.ErrorIs(t, err, baseErr)
		base.AssertExpectations(t)
	})

	t.Run("handles concurrent submissions", func(t *testing.T) {
		base := new(MockRecordingService)
		pool := newTestWorkerPool(t, base, 4)

		base.On("RecordEvent", mock.Anything, mock.Anything).Return(nil)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, pool.RecordEvent(context.Background(), committedEvent()))
			}()
		}
		wg.Wait()

		base.AssertNumberOfCalls(t, "RecordEvent", 10)
	})
}

func TestWorkerPoolRecordingService_Capacity(t *testing.T) {
	pool := newTestWorkerPool(t, new(MockRecordingService), 3)

	assert.Equal(t, 3, pool.Capacity())
	assert.Equal(t, 0, pool.Running())
}
