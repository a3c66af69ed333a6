package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects task completion order.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) task(id string, err error) Task {
	return Task{ID: id, Run: func(ctx context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, id)
		r.mu.Unlock()
		return err
	}}
}

func (r *recorder) indexOf(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.order {
		if v == id {
			return i
		}
	}
	return -1
}

func statusOf(t *testing.T, f Flow, id string) Status {
	t.Helper()
	get, err := f.StatusGetter(id)
	require.NoError(t, err)
	return get()
}

func TestLocalEngine_RespectsDependencies(t *testing.T) {
	e := NewLocalEngine(4)
	f := e.NewFlow("diamond")
	rec := &recorder{}

	require.NoError(t, e.AddTask(f, rec.task("a", nil)))
	require.NoError(t, e.AddTask(f, rec.task("b", nil), "a"))
	require.NoError(t, e.AddTask(f, rec.task("c", nil), "a"))
	require.NoError(t, e.AddTask(f, rec.task("d", nil)))
	require.NoError(t, e.AddDependency(f, "d", "b"))
	require.NoError(t, e.AddDependency(f, "d", "c"))

	assert.Equal(t, StatusPending, statusOf(t, f, "a"))
	require.NoError(t, e.Run(context.Background(), f))

	assert.Less(t, rec.indexOf("a"), rec.indexOf("b"))
	assert.Less(t, rec.indexOf("a"), rec.indexOf("c"))
	assert.Less(t, rec.indexOf("b"), rec.indexOf("d"))
	assert.Less(t, rec.indexOf("c"), rec.indexOf("d"))
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, StatusDone, statusOf(t, f, id))
	}
}

func TestLocalEngine_FailureSkipsDependentsOnly(t *testing.T) {
	e := NewLocalEngine(2)
	f := e.NewFlow("partial")
	rec := &recorder{}
	boom := errors.New("boom")

	require.NoError(t, e.AddTask(f, rec.task("a", boom)))
	require.NoError(t, e.AddTask(f, rec.task("b", nil), "a"))
	require.NoError(t, e.AddTask(f, rec.task("c", nil), "b"))
	require.NoError(t, e.AddTask(f, rec.task("x", nil)))

	err := e.Run(context.Background(), f)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "flow 'partial' failed for a")

	assert.Equal(t, StatusFailed, statusOf(t, f, "a"))
	assert.Equal(t, StatusSkipped, statusOf(t, f, "b"))
	assert.Equal(t, StatusSkipped, statusOf(t, f, "c"))
	assert.Equal(t, StatusDone, statusOf(t, f, "x"))
	assert.Equal(t, -1, rec.indexOf("b"))
}

func TestLocalEngine_ReportsEveryFailure(t *testing.T) {
	e := NewLocalEngine(2)
	f := e.NewFlow("two-failures")
	rec := &recorder{}
	errA, errB := errors.New("a broke"), errors.New("b broke")

	require.NoError(t, e.AddTask(f, rec.task("a", errA)))
	require.NoError(t, e.AddTask(f, rec.task("b", errB)))

	err := e.Run(context.Background(), f)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestLocalEngine_PanicFailsTask(t *testing.T) {
	e := NewLocalEngine(1)
	f := e.NewFlow("panic")
	require.NoError(t, e.AddTask(f, Task{ID: "p", Run: func(ctx context.Context) error {
		panic("unexpected")
	}}))

	err := e.Run(context.Background(), f)
	assert.ErrorContains(t, err, "task panicked: unexpected")
	assert.Equal(t, StatusFailed, statusOf(t, f, "p"))
}

func TestLocalEngine_RejectsCycles(t *testing.T) {
	e := NewLocalEngine(1)
	f := e.NewFlow("cycle")
	rec := &recorder{}

	require.NoError(t, e.AddTask(f, rec.task("a", nil)))
	require.NoError(t, e.AddTask(f, rec.task("b", nil), "a"))
	require.NoError(t, e.AddTask(f, rec.task("c", nil), "b"))

	assert.ErrorIs(t, e.AddDependency(f, "a", "c"), ErrCyclicDependency)
	assert.ErrorIs(t, e.AddDependency(f, "a", "a"), ErrCyclicDependency)
	assert.NoError(t, e.AddDependency(f, "c", "a"))
	assert.NoError(t, e.AddDependency(f, "c", "a"), "duplicate dependency is a no-op")
}

func TestLocalEngine_BuildErrors(t *testing.T) {
	e := NewLocalEngine(1)
	f := e.NewFlow("errors")
	rec := &recorder{}

	require.NoError(t, e.AddTask(f, rec.task("a", nil)))
	assert.ErrorIs(t, e.AddTask(f, rec.task("a", nil)), ErrTaskExists)
	assert.ErrorIs(t, e.AddTask(f, rec.task("b", nil), "missing"), ErrTaskNotFound)
	assert.ErrorIs(t, e.AddDependency(f, "a", "missing"), ErrTaskNotFound)
	assert.Error(t, e.AddTask(f, Task{ID: "empty"}))

	_, err := f.StatusGetter("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	other := NewLocalEngine(1)
	assert.ErrorIs(t, other.AddTask(foreignFlow{}, rec.task("z", nil)), ErrForeignFlow)

	assert.Equal(t, []string{"a"}, f.Tasks())
}

type foreignFlow struct{}

func (foreignFlow) Name() string                              { return "foreign" }
func (foreignFlow) Tasks() []string                           { return nil }
func (foreignFlow) StatusGetter(string) (StatusGetter, error) { return nil, nil }

func TestLocalEngine_RunsOnce(t *testing.T) {
	e := NewLocalEngine(1)
	f := e.NewFlow("once")
	require.NoError(t, e.AddTask(f, (&recorder{}).task("a", nil)))

	require.NoError(t, e.Run(context.Background(), f))
	assert.ErrorIs(t, e.Run(context.Background(), f), ErrFlowStarted)
	assert.ErrorIs(t, e.AddTask(f, (&recorder{}).task("b", nil)), ErrFlowStarted)
}

func TestLocalEngine_EmptyFlow(t *testing.T) {
	e := NewLocalEngine(3)
	assert.NoError(t, e.Run(context.Background(), e.NewFlow("empty")))
}

func TestLocalEngine_CanceledContextSkipsPendingTasks(t *testing.T) {
	e := NewLocalEngine(1)
	f := e.NewFlow("cancel")
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, e.AddTask(f, Task{ID: "first", Run: func(ctx context.Context) error {
		cancel()
		return nil
	}}))
	var ran atomic.Bool
	require.NoError(t, e.AddTask(f, Task{ID: "second", Run: func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}}, "first"))

	err := e.Run(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
	assert.Equal(t, StatusSkipped, statusOf(t, f, "second"))
}

func TestLocalEngine_RunsIndependentTasksConcurrently(t *testing.T) {
	e := NewLocalEngine(4)
	f := e.NewFlow("parallel")

	var running, peak atomic.Int32
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.AddTask(f, Task{ID: id, Run: func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		}}))
	}

	require.NoError(t, e.Run(context.Background(), f))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "done", StatusDone.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.True(t, StatusFailed.Finished())
	assert.False(t, StatusRunning.Finished())
}
