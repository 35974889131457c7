package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one run of a background job
type Task func(ctx context.Context) error

// Periodic runs a task on a fixed interval until stopped
type Periodic struct {
	name       string
	interval   time.Duration
	timeout    time.Duration
	startDelay time.Duration
	task       Task

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewPeriodic creates a job that runs task every interval. Each run gets
// at most one interval (capped at two minutes) to finish.
func NewPeriodic(name string, interval time.Duration, task Task) *Periodic {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := interval
	if timeout > 2*time.Minute {
		timeout = 2 * time.Minute
	}
	return &Periodic{
		name:       name,
		interval:   interval,
		timeout:    timeout,
		startDelay: 5 * time.Second,
		task:       task,
		stopCh:     make(chan struct{}),
	}
}

// Name returns the job name used in logs
func (p *Periodic) Name() string {
	return p.name
}

// Start begins the job loop
func (p *Periodic) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
	slog.Info("job started", slog.String("job", p.name), slog.Duration("interval", p.interval))
}

// Stop gracefully stops the job, waiting for an in-flight run
func (p *Periodic) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	slog.Info("job stopped", slog.String("job", p.name))
}

func (p *Periodic) run() {
	defer p.wg.Done()

	// let the server finish starting
	select {
	case <-time.After(p.startDelay):
	case <-p.stopCh:
		return
	}
	p.tick()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Periodic) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	if err := p.task(ctx); err != nil {
		slog.Error("job failed", slog.String("job", p.name), slog.String("error", err.Error()))
		return
	}
	slog.Debug("job finished", slog.String("job", p.name), slog.Duration("took", time.Since(start)))
}

// RunOnce runs the task once (for testing or manual trigger)
func (p *Periodic) RunOnce(ctx context.Context) error {
	return p.task(ctx)
}

// IsRunning returns whether the job loop is running
func (p *Periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Group starts and stops a set of jobs together
type Group []*Periodic

// Start starts every job
func (g Group) Start() {
	for _, p := range g {
		p.Start()
	}
}

// Stop stops every job
func (g Group) Stop() {
	for _, p := range g {
		p.Stop()
	}
}
