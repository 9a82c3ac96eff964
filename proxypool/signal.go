package proxypool

import (
	"context"
	"sync"
)

// Signal 是一个只用于阶段间通知的广播原语, 不携带数据。
// 每次 Notify 使序号加一并唤醒所有等待者; 等待者记住自己看到的序号,
// 所以在等待开始之前发出的通知不会丢失, 多次通知会合并为一次唤醒。
type Signal struct {
	mu  sync.Mutex
	seq uint64
	ch  chan struct{}
}

// NewSignal creates a Signal with sequence 0.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Notify wakes every waiter.
func (s *Signal) Notify() {
	s.mu.Lock()
	s.seq++
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// Seq returns the number of notifications so far.
func (s *Signal) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Wait blocks until the sequence moves past seen or ctx is done.
// It returns the sequence observed on wake.
func (s *Signal) Wait(ctx context.Context, seen uint64) (uint64, error) {
	for {
		s.mu.Lock()
		if s.seq > seen {
			seq := s.seq
			s.mu.Unlock()
			return seq, nil
		}
		ch := s.ch
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return seen, ctx.Err()
		}
	}
}
