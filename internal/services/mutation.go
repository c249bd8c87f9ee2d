package services

import (
	"context"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

type MutationStatus int

const (
	MutationPending MutationStatus = iota
	MutationSucceeded
	MutationFailed
)

func (s MutationStatus) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationSucceeded:
		return "success"
	case MutationFailed:
		return "failure"
	default:
		return "unknown"
	}
}

// Mutation tracks an operation started with one of the Start methods.
type Mutation struct {
	done chan struct{}
	task *models.Task
	err  error
}

func newMutation() *Mutation {
	return &Mutation{done: make(chan struct{})}
}

func failedMutation(err error) *Mutation {
	m := newMutation()
	m.settle(nil, err)
	return m
}

// settle must be called exactly once.
func (m *Mutation) settle(task *models.Task, err error) {
	m.task = task
	m.err = err
	close(m.done)
}

// Done is closed once the mutation has settled.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

func (m *Mutation) Status() MutationStatus {
	select {
	case <-m.done:
		if m.err != nil {
			return MutationFailed
		}
		return MutationSucceeded
	default:
		return MutationPending
	}
}

// Wait blocks until the mutation settles or ctx is done.
func (m *Mutation) Wait(ctx context.Context) (*models.Task, error) {
	select {
	case <-m.done:
		return m.task, m.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Task returns the settled task. It is nil while pending, after a
// failure and for deletions.
func (m *Mutation) Task() *models.Task {
	if m.Status() != MutationSucceeded {
		return nil
	}
	return m.task
}

func (m *Mutation) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}
