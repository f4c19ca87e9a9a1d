package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
)

var (
	ErrNotFound     = errors.New("run not found")
	ErrInvalidTasks = errors.New("invalid tasks")
	ErrShuttingDown = errors.New("run manager is shutting down")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Runner executes one matching run. *scheduler.Scheduler satisfies it.
type Runner interface {
	RunObserved(ctx context.Context, runID string, tasks []models.Task, obs scheduler.Observer) ([]models.ResultRow, error)
}

// Run is a point-in-time view of a matching run. Rows are set once the run
// has finished.
type Run struct {
	ID          string             `json:"id"`
	Status      Status             `json:"status"`
	Total       int                `json:"total"`
	Completed   int                `json:"completed"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Error       string             `json:"error,omitempty"`
	Rows        []models.ResultRow `json:"rows,omitempty"`
}

type record struct {
	run   Run
	tasks []models.Task
	done  chan struct{}
}

// Manager keeps runs in memory and executes each one in its own goroutine.
type Manager struct {
	runner Runner
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]*record
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(runner Runner, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:  runner,
		logger:  logger.With("component", "run_manager"),
		records: make(map[string]*record),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ValidateTasks rejects empty task lists and tasks without a product name.
func ValidateTasks(tasks []models.Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: at least one task is required", ErrInvalidTasks)
	}
	for i, t := range tasks {
		if strings.TrimSpace(t.Product) == "" {
			return fmt.Errorf("%w: task %d has no product", ErrInvalidTasks, i)
		}
	}
	return nil
}

// Create registers a run and starts it in the background.
func (m *Manager) Create(tasks []models.Task) (Run, error) {
	if err := ValidateTasks(tasks); err != nil {
		return Run{}, err
	}

	rec := &record{
		run: Run{
			ID:        uuid.New().String(),
			Status:    StatusPending,
			Total:     len(tasks),
			CreatedAt: time.Now(),
		},
		tasks: slices.Clone(tasks),
		done:  make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Run{}, ErrShuttingDown
	}
	m.records[rec.run.ID] = rec
	created := rec.run
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("run created", "id", created.ID, "tasks", len(tasks))

	go m.execute(rec)

	return created, nil
}

func (m *Manager) execute(rec *record) {
	defer m.wg.Done()
	defer close(rec.done)

	id := rec.run.ID
	m.update(id, func(r *Run) {
		now := time.Now()
		r.Status = StatusRunning
		r.StartedAt = &now
	})

	rows, err := m.runner.RunObserved(m.ctx, id, rec.tasks, scheduler.ObserverFunc(m.TaskCompleted))

	m.update(id, func(r *Run) {
		now := time.Now()
		r.CompletedAt = &now
		r.Rows = rows
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = StatusCompleted
		r.Completed = r.Total
	})

	if err != nil {
		m.logger.Error("run failed", "id", id, "error", err)
		return
	}
	m.logger.Info("run completed", "id", id, "rows", len(rows))
}

// TaskCompleted records per-task progress for the run named in p.
func (m *Manager) TaskCompleted(_ context.Context, p scheduler.Progress) {
	m.update(p.RunID, func(r *Run) {
		if p.Completed > r.Completed {
			r.Completed = p.Completed
		}
	})
}

func (m *Manager) update(id string, fn func(*Run)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		fn(&rec.run)
	}
}

func (m *Manager) Get(id string) (Run, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return Run{}, ErrNotFound
	}
	return m.snapshot(rec), nil
}

// List returns all runs, newest first, without their rows.
func (m *Manager) List() []Run {
	m.mu.RLock()
	runs := make([]Run, 0, len(m.records))
	for _, rec := range m.records {
		r := rec.run
		r.Rows = nil
		runs = append(runs, r)
	}
	m.mu.RUnlock()

	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return runs
}

// Wait blocks until the run finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Run, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return Run{}, ErrNotFound
	}

	select {
	case <-rec.done:
		return m.snapshot(rec), nil
	case <-ctx.Done():
		return Run{}, ctx.Err()
	}
}

// Shutdown stops accepting runs, cancels running ones and waits for them to
// return or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) snapshot(rec *record) Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := rec.run
	r.Rows = slices.Clone(rec.run.Rows)
	return r
}
