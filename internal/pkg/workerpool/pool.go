package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of concurrently running tasks
	Workers int
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() *Config {
	return &Config{Workers: 8}
}

// Statistics tracks cumulative pool activity
type Statistics struct {
	mu sync.RWMutex

	Submitted int64
	Completed int64
	Failed    int64
	Running   int64
}

func (s *Statistics) incSubmitted() {
	s.mu.Lock()
	s.Submitted++
	s.mu.Unlock()
}

func (s *Statistics) taskStarted() {
	s.mu.Lock()
	s.Running++
	s.mu.Unlock()
}

func (s *Statistics) taskDone(failed bool) {
	s.mu.Lock()
	s.Running--
	if failed {
		s.Failed++
	} else {
		s.Completed++
	}
	s.mu.Unlock()
}

// Get returns a snapshot of the statistics
func (s *Statistics) Get() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		Submitted: s.Submitted,
		Completed: s.Completed,
		Failed:    s.Failed,
		Running:   s.Running,
	}
}

// Pool bounds the number of concurrently running tasks
type Pool struct {
	pool   *ants.Pool
	stats  *Statistics
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a worker pool with the given number of workers
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workerpool: workers must be positive, got %d", config.Workers)
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err interface{}) {
			if logger != nil {
				logger.Error("worker panic", zap.Any("error", err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{
		pool:   antsPool,
		stats:  &Statistics{},
		logger: logger,
	}, nil
}

// Submit enqueues a task; it blocks when all workers are busy
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.mu.Unlock()

	p.stats.incSubmitted()
	return p.pool.Submit(func() {
		p.stats.taskStarted()
		failed := true
		defer func() {
			p.stats.taskDone(failed)
		}()
		task()
		failed = false
	})
}

// Stats returns a snapshot of pool statistics
func (p *Pool) Stats() Statistics {
	return p.stats.Get()
}

// Release stops the pool and waits for running tasks to finish
func (p *Pool) Release() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pool.Release()
}
