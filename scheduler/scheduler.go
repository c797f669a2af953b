// Package scheduler implements the single-threaded cooperative event loop
// (§5): one goroutine runs every posture tick, every closure passed to
// Submit, and every worker result, a single periodic timer drives the
// posture ticks, and a small fixed-size worker pool
// runs process-hash probes off that goroutine, posting results back onto
// it for delivery (§4.F). Generalizes the teacher's time.AfterFunc-based
// heartbeat/update timer pair into one tick driver, and reuses the
// teacher's prime-number backoff table for login retry after a transport
// failure.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/posture"
	"github.com/edgecore/ztedge/posture/probes"
)

// backoffPrimes is the reconnect backoff table, carried over verbatim.
var backoffPrimes = []int{1, 2, 3, 5, 11, 23, 47, 61}

// DefaultTickInterval is the posture engine's steady-state tick period.
const DefaultTickInterval = 30 * time.Second

// firstTickDelay is how soon after Start the first tick fires, so a
// freshly-authenticated session does not wait a full interval before its
// first posture submission.
const firstTickDelay = time.Millisecond

// DefaultWorkerCount sizes the process-hash worker pool.
const DefaultWorkerCount = 4

// processJob is one unit of worker-pool work: a deep copy of the path to
// hash, a cancellable context, and the reply callback to post the result
// back through once the scheduler goroutine picks it up (§5 exception 1).
type processJob struct {
	ctx   context.Context
	path  string
	reply func(body []byte, err error)
}

// Scheduler owns the tick timer, the scheduler goroutine's work queue, and
// the process-hash worker pool.
type Scheduler struct {
	logger *zap.Logger

	engine       *posture.Engine
	tickInterval time.Duration

	work    chan func()
	jobs    chan processJob
	results chan func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	backoffIndex int
}

// Config configures a Scheduler.
type Config struct {
	TickInterval time.Duration
	WorkerCount  int
	Logger       *zap.Logger
}

// New constructs a Scheduler with no engine attached yet. Because building
// a *posture.Engine requires a dispatchProcess callback, and that callback
// is this Scheduler's own DispatchProcess method, construction is two
// steps: New, then posture.New(..., sched.DispatchProcess, ...), then
// AttachEngine.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		logger:       logger,
		tickInterval: interval,
		work:         make(chan func(), 64),
		jobs:         make(chan processJob, 64),
		results:      make(chan func(), 64),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go s.runWorker()
	}
	return s
}

// AttachEngine completes construction, supplying the posture engine the
// tick timer drives. Must be called before Start.
func (s *Scheduler) AttachEngine(engine *posture.Engine) {
	s.engine = engine
}

// Start launches the scheduler goroutine and arms the first tick.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop cancels the scheduler goroutine and every queued worker job;
// in-flight hash work still completes but its result is dropped (§5
// "cancellation flips a flag read only by the completion handler").
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
}

// Submit runs fn on the scheduler goroutine and blocks until it returns,
// the structural replacement for touching Controller/PostureEngine state
// directly from any other goroutine.
func (s *Scheduler) Submit(fn func()) {
	done := make(chan struct{})
	select {
	case s.work <- func() { fn(); close(done) }:
		<-done
	case <-s.ctx.Done():
	}
}

// EndpointStateChange submits an immediate, cache-bypassing posture
// submission through the scheduler goroutine (§4.E "Trigger").
func (s *Scheduler) EndpointStateChange(woken, unlocked bool) {
	s.Submit(func() {
		if s.engine != nil {
			s.engine.EndpointStateChange(s.ctx, woken, unlocked)
		}
	})
}

// DispatchProcess hands a process-hash job to the worker pool; this is
// the dispatchProcess callback passed to posture.New.
func (s *Scheduler) DispatchProcess(ctx context.Context, path string, reply func([]byte, error)) {
	job := processJob{ctx: ctx, path: path, reply: func(body []byte, err error) {
		select {
		case s.results <- func() { reply(body, err) }:
		case <-s.ctx.Done():
		}
	}}
	select {
	case s.jobs <- job:
	case <-s.ctx.Done():
	}
}

// runWorker is one worker-pool goroutine (§5 exception 1).
func (s *Scheduler) runWorker() {
	for job := range s.jobs {
		probes.Process(job.ctx, job.path, job.reply)
	}
}

// run is the scheduler goroutine: a single select loop over the tick
// timer, the work queue, and worker results — the concrete shape of the
// "single-threaded cooperative scheduler" (§5).
func (s *Scheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(firstTickDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.work:
			fn()
		case fn := <-s.results:
			fn()
		case <-timer.C:
			if s.engine != nil {
				s.engine.Tick(s.ctx)
			}
			timer.Reset(s.tickInterval)
		}
	}
}

// backoffDuration returns the current reconnect backoff, capped at the
// tick interval, matching the teacher's getBackoffDuration.
func (s *Scheduler) backoffDuration() time.Duration {
	max := s.tickInterval
	if s.backoffIndex >= len(backoffPrimes) {
		return max
	}
	d := time.Duration(backoffPrimes[s.backoffIndex]) * time.Second
	if d > max {
		return max
	}
	return d
}

// Reconnect retries login with prime-number backoff until it succeeds or
// the scheduler is stopped. Each login attempt and each backoff update
// runs on the scheduler goroutine via Submit; the wait between attempts is
// a select on time.After in the calling goroutine, which blocks the caller
// but not the scheduler loop.
func (s *Scheduler) Reconnect(login func(ctx context.Context) *edgeerr.Error) {
	s.Submit(func() {
		s.backoffIndex = 0
	})
	s.attemptReconnect(login)
}

func (s *Scheduler) attemptReconnect(login func(ctx context.Context) *edgeerr.Error) {
	var loginErr *edgeerr.Error
	s.Submit(func() {
		loginErr = login(s.ctx)
	})
	if loginErr == nil {
		s.Submit(func() { s.backoffIndex = 0 })
		return
	}

	var wait time.Duration
	s.Submit(func() {
		wait = s.backoffDuration()
		s.backoffIndex++
	})
	s.logger.Warn("reconnect failed, backing off", zap.Error(loginErr), zap.Duration("wait", wait))

	select {
	case <-time.After(wait):
		s.attemptReconnect(login)
	case <-s.ctx.Done():
	}
}
