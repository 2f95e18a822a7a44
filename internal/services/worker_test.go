package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptgrade/answer-evaluator/internal/models"
)

type fakeEvalRepo struct {
	pending []models.Evaluation
}

func (f *fakeEvalRepo) Create(_ *models.Evaluation) error { return nil }
func (f *fakeEvalRepo) FindByID(_ uuid.UUID) (*models.Evaluation, error) {
	return &models.Evaluation{}, nil
}
func (f *fakeEvalRepo) ClaimPending(_ uuid.UUID) (bool, error) { return true, nil }
func (f *fakeEvalRepo) UpdateStatus(_ uuid.UUID, _ models.EvaluationStatus) error { return nil }
func (f *fakeEvalRepo) UpdateResult(_ uuid.UUID, _ *models.EvaluationResult) error {
	return nil
}
func (f *fakeEvalRepo) UpdateError(_ uuid.UUID, _ string) error { return nil }
func (f *fakeEvalRepo) FindPendingJobs(_ int) ([]models.Evaluation, error) {
	return f.pending, nil
}

// recordingEvaluator captures the job IDs handed to it by the worker pool.
type recordingEvaluator struct {
	mu        sync.Mutex
	processed []uuid.UUID
	done      chan uuid.UUID
}

func newRecordingEvaluator() *recordingEvaluator {
	return &recordingEvaluator{done: make(chan uuid.UUID, 16)}
}

func (r *recordingEvaluator) EvaluateAnswer(_ context.Context, _ *models.EvaluateRequest) (*models.EvaluationResult, error) {
	return &models.EvaluationResult{}, nil
}

func (r *recordingEvaluator) EvaluateScript(_ context.Context, evalID uuid.UUID) error {
	r.mu.Lock()
	r.processed = append(r.processed, evalID)
	r.mu.Unlock()
	r.done <- evalID
	return nil
}

func (r *recordingEvaluator) processedIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, len(r.processed))
	copy(ids, r.processed)
	return ids
}

func TestWorker_ProcessesEnqueuedJobs(t *testing.T) {
	evaluator := newRecordingEvaluator()
	w := NewWorker(&fakeEvalRepo{}, evaluator, 2, 10)

	w.Start(context.Background())
	defer w.Stop()

	first := uuid.New()
	second := uuid.New()
	w.EnqueueJob(first)
	w.EnqueueJob(second)

	received := map[uuid.UUID]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-evaluator.done:
			received[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs to be processed")
		}
	}

	assert.True(t, received[first])
	assert.True(t, received[second])
}

func TestWorker_StopDrainsAndReturns(t *testing.T) {
	evaluator := newRecordingEvaluator()
	w := NewWorker(&fakeEvalRepo{}, evaluator, 1, 10)

	w.Start(context.Background())

	id := uuid.New()
	w.EnqueueJob(id)

	select {
	case <-evaluator.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	require.Len(t, evaluator.processedIDs(), 1)
}

func TestWorker_EnqueueAfterStopDoesNotBlock(t *testing.T) {
	evaluator := newRecordingEvaluator()
	w := NewWorker(&fakeEvalRepo{}, evaluator, 1, 1)

	w.Start(context.Background())
	w.Stop()

	done := make(chan struct{})
	go func() {
		w.EnqueueJob(uuid.New())
		w.EnqueueJob(uuid.New())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EnqueueJob blocked after Stop")
	}
}
