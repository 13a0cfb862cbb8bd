package fsm

import "sync"

// serializer runs jobs of one user strictly in submission order while jobs
// of different users run concurrently. A user's drain goroutine exits as
// soon as its queue is empty.
type serializer struct {
	mu     sync.Mutex
	queues map[UserID][]func()
	wg     sync.WaitGroup
}

func newSerializer() *serializer {
	return &serializer{queues: make(map[UserID][]func())}
}

func (s *serializer) do(id UserID, job func()) {
	s.mu.Lock()
	if pending, busy := s.queues[id]; busy {
		s.queues[id] = append(pending, job)
		s.mu.Unlock()
		return
	}
	s.queues[id] = []func(){}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.drain(id, job)
}

func (s *serializer) drain(id UserID, job func()) {
	defer s.wg.Done()
	for {
		job()

		s.mu.Lock()
		pending := s.queues[id]
		if len(pending) == 0 {
			delete(s.queues, id)
			s.mu.Unlock()
			return
		}
		job = pending[0]
		s.queues[id] = pending[1:]
		s.mu.Unlock()
	}
}

// wait blocks until every queue is drained.
func (s *serializer) wait() {
	s.wg.Wait()
}
