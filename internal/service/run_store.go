package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/timetable"
)

const subscriberBuffer = 16

type runRecord struct {
	id         string
	status     models.RunStatus
	seed       int64
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time

	resolved *catalog.Resolved
	cfg      timetable.Config
	progress *dto.RunProgress
	result   *dto.SolveResponse
	schedule timetable.Schedule
	history  []int
	err      string

	cancel          context.CancelFunc
	cancelRequested bool
}

func (r *runRecord) view(withResult bool) dto.RunView {
	v := dto.RunView{
		ID:        r.id,
		Status:    string(r.status),
		Seed:      r.seed,
		CreatedAt: r.createdAt,
		Error:     r.err,
	}
	if !r.startedAt.IsZero() {
		started := r.startedAt
		v.StartedAt = &started
	}
	if !r.finishedAt.IsZero() {
		finished := r.finishedAt
		v.FinishedAt = &finished
	}
	if r.progress != nil {
		p := *r.progress
		v.Progress = &p
	}
	if withResult && r.result != nil {
		v.Result = r.result
	}
	return v
}

// runStore keeps runs in memory. Terminal runs expire ttl after they finish.
type runStore struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.RWMutex
	runs map[string]*runRecord
	subs map[string]map[int]chan dto.RunView
	next int
}

func newRunStore(ttl time.Duration, now func() time.Time) *runStore {
	if now == nil {
		now = time.Now
	}
	return &runStore{
		ttl:  ttl,
		now:  now,
		runs: make(map[string]*runRecord),
		subs: make(map[string]map[int]chan dto.RunView),
	}
}

func (s *runStore) add(r *runRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.runs[r.id] = r
}

func (s *runStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

func (s *runStore) view(id string) (dto.RunView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok || s.expired(r) {
		return dto.RunView{}, false
	}
	return r.view(true), true
}

func (s *runStore) list() []dto.RunView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dto.RunView, 0, len(s.runs))
	for _, r := range s.runs {
		if s.expired(r) {
			continue
		}
		out = append(out, r.view(false))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// update applies fn under the write lock and pushes the new state to
// subscribers. It reports false when the run is unknown.
func (s *runStore) update(id string, fn func(r *runRecord)) (dto.RunView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return dto.RunView{}, false
	}
	fn(r)
	v := r.view(true)
	s.broadcastLocked(id, v, r.status.Terminal())
	return v, true
}

// read runs fn under the read lock.
func (s *runStore) read(id string, fn func(r *runRecord)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok || s.expired(r) {
		return false
	}
	fn(r)
	return true
}

// subscribe returns a channel that receives the current state immediately
// and every later change. The channel is closed once the run is terminal or
// the returned release func is called.
func (s *runStore) subscribe(id string) (<-chan dto.RunView, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok || s.expired(r) {
		return nil, nil, false
	}

	ch := make(chan dto.RunView, subscriberBuffer)
	ch <- r.view(true)
	if r.status.Terminal() {
		close(ch)
		return ch, func() {}, true
	}

	s.next++
	key := s.next
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]chan dto.RunView)
	}
	s.subs[id][key] = ch

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id][key]; ok {
			delete(s.subs[id], key)
			close(c)
		}
	}
	return ch, release, true
}

func (s *runStore) broadcastLocked(id string, v dto.RunView, final bool) {
	for key, ch := range s.subs[id] {
		if final {
			// Make room so the terminal state is never dropped.
			select {
			case <-ch:
			default:
			}
			ch <- v
			close(ch)
			delete(s.subs[id], key)
			continue
		}
		select {
		case ch <- v:
		default:
		}
	}
	if final {
		delete(s.subs, id)
	}
}

func (s *runStore) expired(r *runRecord) bool {
	return s.ttl > 0 && r.status.Terminal() && !r.finishedAt.IsZero() && s.now().Sub(r.finishedAt) > s.ttl
}

func (s *runStore) pruneLocked() {
	for id, r := range s.runs {
		if s.expired(r) {
			delete(s.runs, id)
		}
	}
}
