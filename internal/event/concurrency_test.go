package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/statebus/internal/event/dispatch"
)

func TestState_SubscribeRacingSet(t *testing.T) {
	const subscribers = 64

	b := NewBus("subscribe-race")
	foo := NewState[int]("Foo")

	counts := make([]atomic.Int32, subscribers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < subscribers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			foo.Subscribe(b, func(int) { counts[i].Add(1) })
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		foo.Set(b, 1)
	}()

	close(start)
	wg.Wait()

	// Each subscriber saw the value exactly once, by replay or by notification.
	for i := range counts {
		assert.Equal(t, int32(1), counts[i].Load(), "subscriber %d", i)
	}
}

func TestState_SerialQueueEndsWithFinalValue(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewBus("final-value")
	q := dispatch.NewSerialQueue("final-value")
	require.NoError(t, q.Start())

	foo := NewState[int]("Foo")
	var rec recorder[int]
	foo.Subscribe(b, rec.add, WithExecutor(q))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				foo.Set(b, w*1000+i)
			}
		}(w)
	}
	wg.Wait()

	final, ok := foo.Get(b)
	require.True(t, ok)

	require.NoError(t, q.Stop(context.Background()))
	got := rec.values()
	require.NotEmpty(t, got)
	assert.Equal(t, final, got[len(got)-1])

	for i := 1; i < len(got); i++ {
		assert.NotEqual(t, got[i-1], got[i], "consecutive notifications differ")
	}
}

func TestBus_ConcurrentPublishSubscribeUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewBus("churn")
	pool := dispatch.NewWorkerPool("churn", 4)
	require.NoError(t, pool.Start())

	ping := NewEvent[int]("ping")
	level := NewState[int]("level")

	var delivered atomic.Int64
	handler := func(int) { delivered.Add(1) }

	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				ping.Publish(b, i)
				level.Set(b, w*1000+i)
			}
		}(w)
	}

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				var exec DeliveryOption
				if w%2 == 0 {
					exec = WithExecutor(pool)
				} else {
					exec = WithExecutor(dispatch.Immediate())
				}
				s1 := ping.Subscribe(b, handler, exec)
				s2 := level.Subscribe(b, handler, exec)
				_ = b.SubscriptionCount()
				b.Unsubscribe(s1, s2)
			}
		}(w)
	}

	wg.Wait()

	require.NoError(t, pool.Stop(context.Background()))
	assert.Equal(t, 0, b.SubscriptionCount())
	assert.Equal(t, uint64(2000), b.Stats().Published)
}

func TestEvent_ConcurrentPublishersEachDeliverOnce(t *testing.T) {
	b := NewBus("publishers")
	ping := NewEvent[int]("ping")

	var total atomic.Int64
	for i := 0; i < 4; i++ {
		ping.Subscribe(b, func(int) { total.Add(1) })
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				ping.Publish(b, i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8*250*4), total.Load())
	assert.Equal(t, uint64(8*250*4), b.Stats().Delivered)
}

// pausingLocker is a mutex that can run a hook once, right after the next
// Unlock, while the unlocking goroutine has yet to run its deliveries.
type pausingLocker struct {
	mu   sync.Mutex
	hook atomic.Pointer[func()]
}

func (l *pausingLocker) Lock() { l.mu.Lock() }

func (l *pausingLocker) Unlock() {
	l.mu.Unlock()
	if fn := l.hook.Swap(nil); fn != nil {
		(*fn)()
	}
}

// pauseNextUnlock arms l and returns channels reporting the pause and
// releasing it.
func (l *pausingLocker) pauseNextUnlock() (paused <-chan struct{}, resume chan<- struct{}) {
	p := make(chan struct{})
	r := make(chan struct{})
	fn := func() {
		close(p)
		<-r
	}
	l.hook.Store(&fn)
	return p, r
}

func TestState_OverlappingSetsEndOnLatestValue(t *testing.T) {
	var locker pausingLocker
	b := NewBus("overlapping-sets", WithLocker(&locker))
	foo := NewState[string]("Foo")

	var rec recorder[string]
	foo.Subscribe(b, rec.add)

	paused, resume := locker.pauseNextUnlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		foo.Set(b, "v1")
	}()

	<-paused
	// v1 is committed but its delivery has not run yet.
	foo.Set(b, "v2")
	close(resume)
	<-done

	v, ok := foo.Get(b)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, []string{"v2"}, rec.values())
}

func TestState_ReplayOvertakenBySet(t *testing.T) {
	var locker pausingLocker
	b := NewBus("overtaken-replay", WithLocker(&locker))
	foo := NewState[string]("Foo")
	foo.Set(b, "v1")

	var rec recorder[string]
	paused, resume := locker.pauseNextUnlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		foo.Subscribe(b, rec.add)
	}()

	<-paused
	// The subscription is registered and its replay of v1 is pending.
	foo.Set(b, "v2")
	close(resume)
	<-done

	assert.Equal(t, []string{"v2"}, rec.values())
}

func TestState_OverlappingSetsOnQueueKeepEveryCommit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var locker pausingLocker
	b := NewBus("overlapping-queued", WithLocker(&locker))
	foo := NewState[string]("Foo")
	q := dispatch.NewSerialQueue("overlapping-queued")
	require.NoError(t, q.Start())

	var rec recorder[string]
	foo.Subscribe(b, rec.add, WithExecutor(q))

	paused, resume := locker.pauseNextUnlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		foo.Set(b, "v1")
	}()

	<-paused
	foo.Set(b, "v2")
	close(resume)
	<-done

	require.NoError(t, q.Stop(context.Background()))
	assert.Equal(t, []string{"v1", "v2"}, rec.values())
}
