// Package store records generation and deploy runs with their logs,
// in memory and optionally mirrored to Postgres.
package store

import (
	"errors"
	"sync"
	"time"
)

// Kind distinguishes the two pipelines a run can belong to.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindDeploy   Kind = "deploy"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run describes one generation or deploy session.
type Run struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Detail     string    `json:"detail"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type subscriber chan string

type runRecord struct {
	run         Run
	subscribers []subscriber
	logs        []string
}

// MemStore keeps run records in memory and supports log subscriptions.
type MemStore struct {
	mu    sync.RWMutex
	items map[string]*runRecord
}

func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string]*runRecord)}
}

func (s *MemStore) Create(run Run) Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &runRecord{run: run}
	s.items[run.ID] = rec
	return rec.run
}

func (s *MemStore) SetStatus(id string, status Status, errMsg string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[id]
	if !ok {
		return Run{}, errors.New("run not found")
	}
	rec.run.Status = status
	rec.run.UpdatedAt = time.Now().UTC()
	if status == StatusSucceeded || status == StatusFailed {
		finished := rec.run.UpdatedAt
		rec.run.FinishedAt = &finished
	}
	rec.run.Error = errMsg
	return rec.run, nil
}

func (s *MemStore) AppendLog(id string, line string) {
	s.mu.Lock()
	rec, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.logs = append(rec.logs, line)
	s.mu.Unlock()

	s.Broadcast(id, line)
}

func (s *MemStore) Get(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[id]
	if !ok {
		return Run{}, errors.New("run not found")
	}
	return rec.run, nil
}

func (s *MemStore) List() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Run, 0, len(s.items))
	for _, rec := range s.items {
		result = append(result, rec.run)
	}
	return result
}

// Subscribe returns a channel replaying existing log lines and then
// streaming new ones until CloseSubscribers is called.
func (s *MemStore) Subscribe(id string) (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[id]
	if !ok {
		return nil, errors.New("run not found")
	}

	ch := make(subscriber, 64)
	rec.subscribers = append(rec.subscribers, ch)
	for _, line := range rec.logs {
		select {
		case ch <- line:
		default:
		}
	}
	return ch, nil
}

// Broadcast holds the read lock across the send loop: Subscribe
// appends and CloseSubscribers closes under the write lock, and the
// sends are non-blocking, so nothing can stall the lock.
func (s *MemStore) Broadcast(id string, message string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[id]
	if !ok {
		return
	}
	for _, sub := range rec.subscribers {
		select {
		case sub <- message:
		default:
		}
	}
}

func (s *MemStore) CloseSubscribers(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[id]
	if !ok {
		return
	}
	for _, sub := range rec.subscribers {
		close(sub)
	}
	rec.subscribers = nil
}
