// Package store holds the in-memory task table the UI reads from.
//
// Every mutation is applied atomically and then announced to all
// subscribers synchronously, in commit order, before the mutating call
// returns. Subscribers receive an immutable snapshot and must not call
// mutating methods from inside the callback.
package store

import (
	"slices"
	"sync"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

type Observer func(Snapshot)

type Snapshot struct {
	// Tasks are sorted for display.
	Tasks []models.Task
	// InFlight holds the ids of tasks created but not yet confirmed.
	InFlight []int64
}

func (s Snapshot) IsInFlight(id int64) bool {
	_, found := slices.BinarySearch(s.InFlight, id)
	return found
}

type Store struct {
	// notifyMu serializes a commit together with its notification so
	// observers see snapshots in commit order.
	notifyMu sync.Mutex

	mu             sync.RWMutex
	tasks          map[int64]models.Task
	inFlight       map[int64]struct{}
	observers      map[uint64]Observer
	nextObserverID uint64
}

func New() *Store {
	return &Store{
		tasks:     make(map[int64]models.Task),
		inFlight:  make(map[int64]struct{}),
		observers: make(map[uint64]Observer),
	}
}

// SetAll replaces the whole table. In-flight marks of tasks that are no
// longer present are dropped. Duplicate ids keep the last record.
func (s *Store) SetAll(tasks []models.Task) {
	s.mutate(func() bool {
		s.tasks = make(map[int64]models.Task, len(tasks))
		for _, task := range tasks {
			s.tasks[task.ID] = task.Clone()
		}
		for id := range s.inFlight {
			if _, ok := s.tasks[id]; !ok {
				delete(s.inFlight, id)
			}
		}
		return true
	})
}

// Add inserts the task, overwriting any record with the same id.
func (s *Store) Add(task models.Task) {
	s.mutate(func() bool {
		s.tasks[task.ID] = task.Clone()
		return true
	})
}

// Update replaces the record with the same id. It is a no-op when
// there is no such record.
func (s *Store) Update(task models.Task) {
	s.mutate(func() bool {
		if _, ok := s.tasks[task.ID]; !ok {
			return false
		}
		s.tasks[task.ID] = task.Clone()
		return true
	})
}

// Delete removes the record and its in-flight mark.
func (s *Store) Delete(id int64) {
	s.mutate(func() bool {
		_, hadTask := s.tasks[id]
		_, hadMark := s.inFlight[id]
		delete(s.tasks, id)
		delete(s.inFlight, id)
		return hadTask || hadMark
	})
}

// MarkInFlight is a no-op for ids that are not in the table.
func (s *Store) MarkInFlight(id int64) {
	s.mutate(func() bool {
		if _, ok := s.tasks[id]; !ok {
			return false
		}
		if _, ok := s.inFlight[id]; ok {
			return false
		}
		s.inFlight[id] = struct{}{}
		return true
	})
}

func (s *Store) ClearInFlight(id int64) {
	s.mutate(func() bool {
		if _, ok := s.inFlight[id]; !ok {
			return false
		}
		delete(s.inFlight, id)
		return true
	})
}

func (s *Store) Get(id int64) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return task.Clone(), true
}

// Tasks returns a copy of the table sorted for display.
func (s *Store) Tasks() []models.Task {
	return s.Snapshot().Tasks
}

func (s *Store) IsInFlight(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.inFlight[id]
	return ok
}

func (s *Store) InFlight() []int64 {
	return s.Snapshot().InFlight
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tasks)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// Subscribe registers fn for every subsequent change and returns a
// function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObserverID
	s.nextObserverID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) mutate(fn func() (changed bool)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	for _, observer := range observers {
		observer(snapshot)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	tasks := make([]models.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	models.SortForDisplay(tasks)

	inFlight := make([]int64, 0, len(s.inFlight))
	for id := range s.inFlight {
		inFlight = append(inFlight, id)
	}
	slices.Sort(inFlight)

	return Snapshot{
		Tasks:    tasks,
		InFlight: inFlight,
	}
}
