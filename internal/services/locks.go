package services

import "sync"

type taskLock struct {
	mu   sync.Mutex
	refs int
}

// taskLocks is a mutex per task id, dropped once nobody holds it.
type taskLocks struct {
	mu    sync.Mutex
	locks map[int64]*taskLock
}

func newTaskLocks() *taskLocks {
	return &taskLocks{locks: make(map[int64]*taskLock)}
}

func (l *taskLocks) lock(taskID int64) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[taskID]
	if !ok {
		lock = new(taskLock)
		l.locks[taskID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, taskID)
			}
			l.mu.Unlock()
		})
	}
}
