package runs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner reports progress for every task and returns empty rows, or err.
type fakeRunner struct {
	err     error
	release chan struct{}
}

func (f *fakeRunner) RunObserved(ctx context.Context, runID string, tasks []models.Task, obs scheduler.Observer) ([]models.ResultRow, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	rows := make([]models.ResultRow, len(tasks))
	for i, t := range tasks {
		rows[i] = models.NewEmptyRow(t)
		obs.TaskCompleted(ctx, scheduler.Progress{
			RunID: runID, Index: i, Completed: i + 1, Total: len(tasks), Row: rows[i],
		})
	}
	return rows, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tasks() []models.Task {
	return []models.Task{
		{Product: "Widget Pro", Vendor: "Acme"},
		{Product: "Gadget", Vendor: "Globex"},
	}
}

func TestValidateTasks(t *testing.T) {
	assert.ErrorIs(t, ValidateTasks(nil), ErrInvalidTasks)
	assert.ErrorIs(t, ValidateTasks([]models.Task{{Product: "  ", Vendor: "Acme"}}), ErrInvalidTasks)
	assert.NoError(t, ValidateTasks([]models.Task{{Product: "Widget", Vendor: ""}}))
}

func TestCreateRunsToCompletion(t *testing.T) {
	m := NewManager(&fakeRunner{}, testLogger())

	run, err := m.Create(tasks())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusPending, run.Status)
	assert.Equal(t, 2, run.Total)

	done, err := m.Wait(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 2, done.Completed)
	require.Len(t, done.Rows, 2)
	assert.Equal(t, "Gadget", done.Rows[1].Task.Product)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestCreateRejectsInvalidTasks(t *testing.T) {
	m := NewManager(&fakeRunner{}, testLogger())

	_, err := m.Create(nil)
	assert.ErrorIs(t, err, ErrInvalidTasks)
	assert.Empty(t, m.List())
}

func TestRunFailure(t *testing.T) {
	m := NewManager(&fakeRunner{err: scheduler.ErrEngineInit}, testLogger())

	run, err := m.Create(tasks())
	require.NoError(t, err)

	done, err := m.Wait(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, "browser engine failed to start")
	assert.Empty(t, done.Rows)
}

func TestRunningStatus(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	m := NewManager(runner, testLogger())

	run, err := m.Create(tasks())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		r, err := m.Get(run.ID)
		return err == nil && r.Status == StatusRunning
	}, time.Second, 5*time.Millisecond)

	close(runner.release)
	done, err := m.Wait(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestGetUnknownRun(t *testing.T) {
	m := NewManager(&fakeRunner{}, testLogger())

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Wait(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOmitsRows(t *testing.T) {
	m := NewManager(&fakeRunner{}, testLogger())

	first, err := m.Create(tasks())
	require.NoError(t, err)
	second, err := m.Create(tasks()[:1])
	require.NoError(t, err)

	_, err = m.Wait(context.Background(), first.ID)
	require.NoError(t, err)
	_, err = m.Wait(context.Background(), second.ID)
	require.NoError(t, err)

	runs := m.List()
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	for _, r := range runs {
		assert.Nil(t, r.Rows)
	}
}

func TestTaskCompletedIgnoresUnknownRun(t *testing.T) {
	m := NewManager(&fakeRunner{}, testLogger())
	assert.NotPanics(t, func() {
		m.TaskCompleted(context.Background(), scheduler.Progress{RunID: "missing", Completed: 1})
	})
}

func TestShutdownCancelsRuns(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	m := NewManager(runner, testLogger())

	run, err := m.Create(tasks())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	done, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Error, context.Canceled.Error())

	_, err = m.Create(tasks())
	assert.True(t, errors.Is(err, ErrShuttingDown))
}
