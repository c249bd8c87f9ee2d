package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-client/internal/api"
	"github.com/adanyl0v/go-todo-client/internal/cache"
	"github.com/adanyl0v/go-todo-client/internal/metrics"
	"github.com/adanyl0v/go-todo-client/internal/models"
	"github.com/adanyl0v/go-todo-client/internal/store"
)

type settleFunc func(ctx context.Context) (*models.Task, error)

type taskServiceImpl struct {
	logger zerolog.Logger
	client api.Client
	store  *store.Store
	mirror cache.Mirror
	opts   TaskServiceOptions
	locks  *taskLocks

	lastPlaceholderID atomic.Int64

	// mirrorMu makes snapshot+write and restore of the mirror atomic
	// with respect to each other.
	mirrorMu sync.Mutex

	// mu guards the fields below. Refetch results are applied to the
	// store while holding it, so pending placeholders and the applied
	// list never interleave.
	mu       sync.Mutex
	closed   bool
	pending  map[int64]pendingCreate
	fetchSeq uint64
	// Refetches numbered below minSeq were started before a mutation
	// and must not overwrite its optimistic state.
	minSeq     uint64
	appliedSeq uint64
	cancels    map[uint64]context.CancelFunc

	ops     sync.WaitGroup
	fetches sync.WaitGroup
}

func NewTaskService(
	logger zerolog.Logger,
	client api.Client,
	taskStore *store.Store,
	mirror cache.Mirror,
	opts TaskServiceOptions,
) TaskService {
	if opts.RefetchTimeout <= 0 {
		opts.RefetchTimeout = DefaultTaskServiceOptions().RefetchTimeout
	}

	return &taskServiceImpl{
		logger:  logger,
		client:  client,
		store:   taskStore,
		mirror:  mirror,
		opts:    opts,
		locks:   newTaskLocks(),
		pending: make(map[int64]pendingCreate),
		cancels: make(map[uint64]context.CancelFunc),
	}
}

func (s *taskServiceImpl) Refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	return s.refetch(ctx, seq)
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params models.CreateTaskParams) (*models.Task, error) {
	settle, err := s.beginCreate(ctx, params)
	if err != nil {
		return nil, err
	}
	return settle(ctx)
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params models.UpdateTaskParams) (*models.Task, error) {
	settle, err := s.beginUpdate(ctx, params)
	if err != nil {
		return nil, err
	}
	return settle(ctx)
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID int64) error {
	settle, err := s.beginDelete(ctx, taskID)
	if err != nil {
		return err
	}
	_, err = settle(ctx)
	return err
}

func (s *taskServiceImpl) StartCreateTask(ctx context.Context, params models.CreateTaskParams) *Mutation {
	settle, err := s.beginCreate(ctx, params)
	return s.start(ctx, settle, err)
}

func (s *taskServiceImpl) StartUpdateTask(ctx context.Context, params models.UpdateTaskParams) *Mutation {
	settle, err := s.beginUpdate(ctx, params)
	return s.start(ctx, settle, err)
}

func (s *taskServiceImpl) StartDeleteTask(ctx context.Context, taskID int64) *Mutation {
	settle, err := s.beginDelete(ctx, taskID)
	return s.start(ctx, settle, err)
}

func (s *taskServiceImpl) start(ctx context.Context, settle settleFunc, err error) *Mutation {
	if err != nil {
		return failedMutation(err)
	}

	m := newMutation()
	go func() {
		task, err := settle(ctx)
		m.settle(task, err)
	}()
	return m
}

func (s *taskServiceImpl) Wait() {
	s.ops.Wait()
	s.fetches.Wait()
}

func (s *taskServiceImpl) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Wait()
	s.logger.Info().Msg("closed task service")
}

// enter registers a new operation unless the service is closed.
func (s *taskServiceImpl) enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	s.ops.Add(1)
	return nil
}

func (s *taskServiceImpl) beginCreate(ctx context.Context, params models.CreateTaskParams) (settleFunc, error) {
	err := s.enter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateTaskFailed, err)
	}
	s.cancelRefetches()

	now := models.Now()
	placeholder := models.Task{
		ID:          s.lastPlaceholderID.Add(-1),
		Title:       params.Title,
		Description: params.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.trackPending(placeholder)
	s.store.Add(placeholder)
	s.store.MarkInFlight(placeholder.ID)
	previous, mirrored := s.updateMirror(ctx, func(tasks []models.Task) []models.Task {
		return cache.Append(tasks, placeholder)
	})
	s.logger.Debug().
		Int64("placeholder_id", placeholder.ID).
		Msg("inserted optimistic task")

	return func(ctx context.Context) (task *models.Task, err error) {
		defer s.ops.Done()
		defer s.invalidate()
		defer func() {
			metrics.Mutations.WithLabelValues(metrics.OperationCreate, metrics.Outcome(err)).Inc()
		}()

		start := time.Now()
		created, err := s.client.CreateTask(ctx, params)
		metrics.RemoteCallDuration.WithLabelValues(metrics.OperationCreate).Observe(time.Since(start).Seconds())
		if err != nil {
			if mirrored {
				s.restoreMirror(ctx, metrics.OperationCreate, previous)
			}
			s.untrackPending(placeholder.ID)
			s.store.Delete(placeholder.ID)
			s.store.ClearInFlight(placeholder.ID)

			s.logger.Error().
				Err(err).
				Int64("placeholder_id", placeholder.ID).
				Msg("failed to create task")
			return nil, fmt.Errorf("%w: %w", ErrCreateTaskFailed, err)
		}

		s.untrackPending(placeholder.ID)
		s.store.Delete(placeholder.ID)
		s.store.ClearInFlight(placeholder.ID)
		s.updateMirror(ctx, func(tasks []models.Task) []models.Task {
			return cache.Remove(tasks, placeholder.ID)
		})
		s.store.Add(*created)

		s.logger.Info().
			Int64("task_id", created.ID).
			Int64("placeholder_id", placeholder.ID).
			Msg("created task")
		return created, nil
	}, nil
}

func (s *taskServiceImpl) beginUpdate(ctx context.Context, params models.UpdateTaskParams) (settleFunc, error) {
	err := s.enter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateTaskFailed, err)
	}
	unlock := s.lockTask(params.ID)
	s.cancelRefetches()

	var optimistic *models.Task
	previous, mirrored := s.updateMirror(ctx, func(tasks []models.Task) []models.Task {
		current, ok := cache.Find(tasks, params.ID)
		if !ok {
			return tasks
		}

		merged := applyUpdate(current, params)
		optimistic = &merged
		return cache.Replace(tasks, merged)
	})

	// Without a readable mirror the store is the best local copy.
	if !mirrored {
		current, ok := s.store.Get(params.ID)
		if ok && !current.IsPlaceholder() {
			merged := applyUpdate(current, params)
			optimistic = &merged
		}
	}

	if optimistic != nil {
		s.store.Update(*optimistic)
		s.logger.Debug().
			Int64("task_id", params.ID).
			Msg("applied optimistic update")
	} else {
		s.logger.Warn().
			Err(ErrTaskNotFound).
			Int64("task_id", params.ID).
			Msg("skipped optimistic update")
	}

	return func(ctx context.Context) (task *models.Task, err error) {
		defer s.ops.Done()
		defer unlock()
		defer s.invalidate()
		defer func() {
			metrics.Mutations.WithLabelValues(metrics.OperationUpdate, metrics.Outcome(err)).Inc()
		}()

		start := time.Now()
		updated, err := s.client.UpdateTask(ctx, params)
		metrics.RemoteCallDuration.WithLabelValues(metrics.OperationUpdate).Observe(time.Since(start).Seconds())
		if err != nil {
			if mirrored {
				s.restoreMirror(ctx, metrics.OperationUpdate, previous)
			}

			s.logger.Error().
				Err(err).
				Int64("task_id", params.ID).
				Msg("failed to update task")
			return nil, fmt.Errorf("%w: %w", ErrUpdateTaskFailed, err)
		}

		s.store.Update(*updated)

		s.logger.Info().
			Int64("task_id", updated.ID).
			Msg("updated task")
		return updated, nil
	}, nil
}

func (s *taskServiceImpl) beginDelete(ctx context.Context, taskID int64) (settleFunc, error) {
	err := s.enter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeleteTaskFailed, err)
	}
	unlock := s.lockTask(taskID)
	s.cancelRefetches()

	previous, mirrored := s.updateMirror(ctx, func(tasks []models.Task) []models.Task {
		return cache.Remove(tasks, taskID)
	})
	s.store.Delete(taskID)
	s.logger.Debug().
		Int64("task_id", taskID).
		Msg("removed task optimistically")

	return func(ctx context.Context) (_ *models.Task, err error) {
		defer s.ops.Done()
		defer unlock()
		defer s.invalidate()
		defer func() {
			metrics.Mutations.WithLabelValues(metrics.OperationDelete, metrics.Outcome(err)).Inc()
		}()

		start := time.Now()
		err = s.client.DeleteTask(ctx, taskID)
		metrics.RemoteCallDuration.WithLabelValues(metrics.OperationDelete).Observe(time.Since(start).Seconds())
		if err != nil {
			if mirrored {
				s.restoreMirror(ctx, metrics.OperationDelete, previous)
			}

			s.logger.Error().
				Err(err).
				Int64("task_id", taskID).
				Msg("failed to delete task")
			return nil, fmt.Errorf("%w: %w", ErrDeleteTaskFailed, err)
		}

		s.logger.Info().
			Int64("task_id", taskID).
			Msg("deleted task")
		return nil, nil
	}, nil
}

func (s *taskServiceImpl) lockTask(taskID int64) (unlock func()) {
	if !s.opts.SerializePerTask {
		return func() {}
	}
	return s.locks.lock(taskID)
}

func applyUpdate(current models.Task, params models.UpdateTaskParams) models.Task {
	merged := params.Apply(current)
	merged.UpdatedAt = models.Now()
	if merged.UpdatedAt.Before(merged.CreatedAt.Time) {
		merged.UpdatedAt = merged.CreatedAt
	}
	return merged
}

// updateMirror applies fn to the mirrored list and returns the list as
// it was before. When the mirror cannot be read it is left untouched,
// fn is not called and ok is false, so there is nothing to restore.
func (s *taskServiceImpl) updateMirror(ctx context.Context, fn func([]models.Task) []models.Task) (previous []models.Task, ok bool) {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	previous, err := s.mirror.Get(ctx)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Msg("failed to read mirror cache")
		return nil, false
	}

	err = s.mirror.Set(ctx, fn(previous))
	if err != nil {
		s.logger.Warn().
			Err(err).
			Msg("failed to write mirror cache")
	}
	return previous, true
}

func (s *taskServiceImpl) restoreMirror(ctx context.Context, operation string, previous []models.Task) {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	metrics.Rollbacks.WithLabelValues(operation).Inc()
	err := s.mirror.Set(context.WithoutCancel(ctx), previous)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("operation", operation).
			Msg("failed to restore mirror cache")
		return
	}
	s.logger.Debug().
		Str("operation", operation).
		Int("count", len(previous)).
		Msg("restored mirror cache")
}

// pendingCreate is a creation whose placeholder stays in the store
// until the remote call settles.
type pendingCreate struct {
	placeholder models.Task
	// known holds the ids confirmed before the creation started. It is
	// nil when no list had been fetched yet.
	known map[int64]struct{}
}

// committedAs finds the record the server stored for this creation: one
// that was not known when the creation started and carries the same
// title and description. Records in claimed are skipped.
func (p pendingCreate) committedAs(tasks []models.Task, claimed map[int64]struct{}) (int64, bool) {
	if p.known == nil {
		return 0, false
	}

	for _, task := range tasks {
		if _, ok := p.known[task.ID]; ok {
			continue
		}
		if _, ok := claimed[task.ID]; ok {
			continue
		}
		if task.Title == p.placeholder.Title && sameDescription(task.Description, p.placeholder.Description) {
			return task.ID, true
		}
	}
	return 0, false
}

func sameDescription(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *taskServiceImpl) trackPending(placeholder models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var known map[int64]struct{}
	if s.appliedSeq > 0 {
		known = make(map[int64]struct{})
		for _, task := range s.store.Tasks() {
			if !task.IsPlaceholder() {
				known[task.ID] = struct{}{}
			}
		}
	}

	s.pending[placeholder.ID] = pendingCreate{placeholder: placeholder, known: known}
	metrics.PendingCreations.Inc()
}

func (s *taskServiceImpl) untrackPending(placeholderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[placeholderID]; ok {
		delete(s.pending, placeholderID)
		metrics.PendingCreations.Dec()
	}
}

// cancelRefetches aborts running background refetches and makes sure
// the results of older ones are discarded.
func (s *taskServiceImpl) cancelRefetches() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minSeq = s.fetchSeq + 1
	for seq, cancel := range s.cancels {
		cancel()
		delete(s.cancels, seq)
	}
}

// invalidate schedules a background refetch. It is deferred by every
// operation, so it runs on success, failure and panic alike.
func (s *taskServiceImpl) invalidate() {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RefetchTimeout)
	s.cancels[seq] = cancel
	s.fetches.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.fetches.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, seq)
			s.mu.Unlock()
			cancel()
		}()

		_ = s.refetch(ctx, seq)
	}()
}

func (s *taskServiceImpl) refetch(ctx context.Context, seq uint64) error {
	start := time.Now()
	tasks, err := s.client.ListTasks(ctx)
	metrics.RemoteCallDuration.WithLabelValues(metrics.OperationList).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Refetches.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.Error().
			Err(err).
			Uint64("seq", seq).
			Msg("failed to refetch tasks")
		return fmt.Errorf("%w: %w", ErrRefetchFailed, err)
	}

	if !s.apply(ctx, seq, tasks) {
		metrics.Refetches.WithLabelValues(metrics.OutcomeDiscarded).Inc()
		s.logger.Debug().
			Uint64("seq", seq).
			Msg("discarded stale refetch")
		return nil
	}

	metrics.Refetches.WithLabelValues(metrics.OutcomeApplied).Inc()
	s.logger.Debug().
		Uint64("seq", seq).
		Int("count", len(tasks)).
		Msg("refetched tasks")
	return nil
}

// apply reconciles the mirror and the store with a fetched list.
// Placeholders of creations still in flight are kept in the store
// unless the list already holds the record the server created for them.
func (s *taskServiceImpl) apply(ctx context.Context, seq uint64, tasks []models.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.minSeq || seq <= s.appliedSeq {
		return false
	}
	s.appliedSeq = seq

	s.mirrorMu.Lock()
	err := s.mirror.Set(context.WithoutCancel(ctx), tasks)
	s.mirrorMu.Unlock()
	if err != nil {
		s.logger.Warn().
			Err(err).
			Msg("failed to write mirror cache")
	}

	merged := slices.Clone(tasks)
	claimed := make(map[int64]struct{})
	// Oldest creation first, placeholder ids count down.
	for _, id := range slices.Backward(slices.Sorted(maps.Keys(s.pending))) {
		p := s.pending[id]
		if taskID, ok := p.committedAs(tasks, claimed); ok {
			claimed[taskID] = struct{}{}
			s.logger.Debug().
				Int64("placeholder_id", id).
				Int64("task_id", taskID).
				Msg("dropped placeholder of committed task")
			continue
		}
		merged = append(merged, p.placeholder)
	}
	s.store.SetAll(merged)
	return true
}
