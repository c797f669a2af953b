package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgecore/ztedge/posture"
	"github.com/edgecore/ztedge/servicetable"
)

type noopSession struct{}

func (noopSession) Session() (string, bool) { return "", false }
func (noopSession) InstanceID() string       { return "" }

type noopTransport struct{}

func (noopTransport) NoBulkPostureAPI() bool { return false }
func (noopTransport) SetNoBulkPostureAPI()   {}
func (noopTransport) PostureResponseBulk(ctx context.Context, body []byte) (posture.BulkResult, error) {
	return posture.BulkResult{}, nil
}
func (noopTransport) PostureResponse(ctx context.Context, body []byte) (posture.SingleResult, error) {
	return posture.SingleResult{}, nil
}
func (noopTransport) RefreshService(ctx context.Context, id string) (posture.CatalogService, error) {
	return posture.CatalogService{}, nil
}
func (noopTransport) RefreshCatalog(ctx context.Context) ([]posture.CatalogService, error) {
	return nil, nil
}

func TestSubmitRunsOnSchedulerGoroutine(t *testing.T) {
	sched := New(Config{TickInterval: time.Hour})
	sched.Start()
	defer sched.Stop()

	var ran bool
	sched.Submit(func() { ran = true })
	assert.True(t, ran)
}

func TestTickFiresWithoutAttachedEngineIsNoop(t *testing.T) {
	sched := New(Config{TickInterval: time.Hour})
	sched.Start()
	defer sched.Stop()

	// Should not panic despite no engine attached; give the first (1ms)
	// tick time to fire harmlessly.
	time.Sleep(10 * time.Millisecond)
}

func TestAttachedEngineTicksWithoutSession(t *testing.T) {
	sched := New(Config{TickInterval: time.Hour})
	engine := posture.New(noopSession{}, noopTransport{}, servicetable.New(), posture.Overrides{}, sched.DispatchProcess, nil)
	sched.AttachEngine(engine)
	sched.Start()
	defer sched.Stop()

	time.Sleep(10 * time.Millisecond) // first tick fires at ~1ms, should be a no-op (no session)
}

func TestDispatchProcessRoutesResultBackToSchedulerGoroutine(t *testing.T) {
	sched := New(Config{TickInterval: time.Hour})
	sched.Start()
	defer sched.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	sched.DispatchProcess(context.Background(), "/nonexistent/path/for/hash/test", func(body []byte, err error) {
		defer wg.Done()
		assert.Error(t, err, "hashing a nonexistent file should fail")
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch reply never arrived")
	}
}

func TestStopCancelsScheduler(t *testing.T) {
	sched := New(Config{TickInterval: time.Hour})
	sched.Start()
	sched.Stop()

	select {
	case <-sched.ctx.Done():
	default:
		t.Fatal("scheduler context should be cancelled after Stop")
	}
}

func TestBackoffDurationFollowsPrimeSequenceCappedAtTickInterval(t *testing.T) {
	sched := New(Config{TickInterval: 10 * time.Second})
	require.Equal(t, time.Second, sched.backoffDuration())
	sched.backoffIndex = 100
	assert.Equal(t, 10*time.Second, sched.backoffDuration())
}
