package workflow

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"go.uber.org/multierr"
)

// LocalEngine runs flows in-process on a pool of worker goroutines.
//
// A failed task marks its transitive dependents skipped. Tasks on unrelated
// branches keep running; nothing that already finished is undone.
type LocalEngine struct {
	numWorkers int
}

// NewLocalEngine creates an engine with the given number of workers. A
// non-positive value uses one worker per CPU.
func NewLocalEngine(numWorkers int) *LocalEngine {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &LocalEngine{numWorkers: numWorkers}
}

// localFlow is the Flow implementation of LocalEngine.
type localFlow struct {
	name string

	mu      sync.Mutex
	tasks   map[string]*taskNode
	order   []string
	started bool
}

type taskNode struct {
	id         string
	run        TaskFunc
	deps       map[string]*taskNode
	dependents []*taskNode

	depCount atomic.Int32
	state    atomic.Int32
	err      error
	skipOnce sync.Once
}

func (t *taskNode) status() Status {
	return Status(t.state.Load())
}

func (f *localFlow) Name() string {
	return f.name
}

func (f *localFlow) Tasks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func (f *localFlow) StatusGetter(id string) (StatusGetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.status, nil
}

// NewFlow implements Engine.
func (e *LocalEngine) NewFlow(name string) Flow {
	return &localFlow{name: name, tasks: make(map[string]*taskNode)}
}

func (e *LocalEngine) own(flow Flow) (*localFlow, error) {
	f, ok := flow.(*localFlow)
	if !ok {
		return nil, ErrForeignFlow
	}
	return f, nil
}

// AddTask implements Engine.
func (e *LocalEngine) AddTask(flow Flow, task Task, dependsOn ...string) error {
	f, err := e.own(flow)
	if err != nil {
		return err
	}
	if task.ID == "" || task.Run == nil {
		return fmt.Errorf("task must have an id and a body")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return ErrFlowStarted
	}
	if _, exists := f.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}
	for _, dep := range dependsOn {
		if _, ok := f.tasks[dep]; !ok {
			return fmt.Errorf("%w: %s (dependency of %s)", ErrTaskNotFound, dep, task.ID)
		}
	}

	f.tasks[task.ID] = &taskNode{id: task.ID, run: task.Run, deps: make(map[string]*taskNode)}
	f.order = append(f.order, task.ID)
	for _, dep := range dependsOn {
		// A brand new task cannot close a cycle.
		f.link(task.ID, dep)
	}
	return nil
}

// AddDependency implements Engine. Adding an existing dependency is a no-op;
// a dependency that would close a cycle is rejected.
func (e *LocalEngine) AddDependency(flow Flow, task, dependsOn string) error {
	f, err := e.own(flow)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return ErrFlowStarted
	}
	if task == dependsOn {
		return fmt.Errorf("%w: %s depends on itself", ErrCyclicDependency, task)
	}
	t, ok := f.tasks[task]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, task)
	}
	if _, ok := f.tasks[dependsOn]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, dependsOn)
	}
	if _, exists := t.deps[dependsOn]; exists {
		return nil
	}
	if f.reaches(task, dependsOn) {
		return fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, dependsOn, task)
	}
	f.link(task, dependsOn)
	return nil
}

// link records that task runs after dep. Callers hold f.mu.
func (f *localFlow) link(task, dep string) {
	t, d := f.tasks[task], f.tasks[dep]
	t.deps[dep] = d
	d.dependents = append(d.dependents, t)
}

// reaches reports whether to is reachable from from by following
// dependents. Callers hold f.mu.
func (f *localFlow) reaches(from, to string) bool {
	seen := make(map[string]bool)
	stack := []*taskNode{f.tasks[from]}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.id == to {
			return true
		}
		if seen[n.id] {
			continue
		}
		seen[n.id] = true
		stack = append(stack, n.dependents...)
	}
	return false
}

// Run implements Engine. A flow can run once. The returned error wraps
// every task failure; skipped tasks are symptoms and are not reported.
func (e *LocalEngine) Run(ctx context.Context, flow Flow) error {
	f, err := e.own(flow)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrFlowStarted
	}
	f.started = true
	nodes := make([]*taskNode, 0, len(f.order))
	for _, id := range f.order {
		nodes = append(nodes, f.tasks[id])
	}
	f.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("flow", f.name)
	ctx = ctxlog.WithLogger(ctx, logger)

	r := &run{readyChan: make(chan *taskNode, len(nodes))}
	r.wg.Add(len(nodes))

	roots := 0
	for _, n := range nodes {
		n.depCount.Store(int32(len(n.deps)))
		if len(n.deps) == 0 {
			r.readyChan <- n
			roots++
		}
	}
	logger.Debug("Starting flow.", "tasks", len(nodes), "roots", roots, "workers", e.numWorkers)

	var workers sync.WaitGroup
	workers.Add(e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go func(workerID int) {
			defer workers.Done()
			r.worker(ctx, workerID)
		}(i)
	}

	r.wg.Wait()
	close(r.readyChan)
	workers.Wait()

	var failed []string
	var errs error
	for _, n := range nodes {
		if n.status() == StatusFailed {
			failed = append(failed, n.id)
			errs = multierr.Append(errs, fmt.Errorf("task %s: %w", n.id, n.err))
		}
	}
	if errs != nil {
		logger.Error("Flow failed.", "failed", failed)
		return fmt.Errorf("flow '%s' failed for %s: %w", f.name, strings.Join(failed, ", "), errs)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("flow '%s' interrupted: %w", f.name, err)
	}
	logger.Debug("Flow completed.")
	return nil
}

// run holds the state of one flow execution.
type run struct {
	readyChan chan *taskNode
	wg        sync.WaitGroup
}

func (r *run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for n := range r.readyChan {
		taskLogger := logger.With("workerID", workerID, "task", n.id)

		if ctx.Err() != nil {
			n.skipOnce.Do(func() {
				taskLogger.Warn("Context canceled, skipping task.")
				n.err = ctx.Err()
				r.finish(n, StatusSkipped)
			})
			r.skipDependents(ctx, n)
			continue
		}

		n.state.Store(int32(StatusRunning))
		start := time.Now()
		err := safeRun(ctx, n.run)
		taskDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			taskLogger.Error("Task failed.", "error", err)
			n.err = err
			r.finish(n, StatusFailed)
			r.skipDependents(ctx, n)
			continue
		}

		taskLogger.Debug("Task done.")
		// Unlock dependents before finishing so wg cannot reach zero while
		// a ready dependent is still unsent.
		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				r.readyChan <- dependent
			}
		}
		r.finish(n, StatusDone)
	}
}

func (r *run) finish(n *taskNode, s Status) {
	n.state.Store(int32(s))
	taskCounter.WithLabelValues(s.String()).Inc()
	r.wg.Done()
}

// skipDependents marks every transitive dependent of n as skipped.
func (r *run) skipDependents(ctx context.Context, n *taskNode) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping task due to upstream failure.", "task", dependent.id, "dependency", n.id)
			dependent.err = fmt.Errorf("skipped due to upstream failure of '%s'", n.id)
			r.finish(dependent, StatusSkipped)
			r.skipDependents(ctx, dependent)
		})
	}
}

// safeRun turns a panicking task into a failed one.
func safeRun(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return fn(ctx)
}
