package tasks

import (
	"container/heap"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// 13 characters keeps task ids short enough for constrained front-end
// callback payloads while staying unique in practice.
const taskIDLength = 13

// Additions run before removals so a removal submitted in the same burst
// sees its original already applied.
const (
	priorityAdd    = 1
	priorityRemove = 2
)

type queuedTask struct {
	priority int
	seq      uint64
	taskID   string
}

// taskHeap orders by priority, FIFO within equal priority.
type taskHeap []queuedTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(queuedTask)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler drains the mutation queue. The global mutation lock is acquired
// in the dispatch loop before the next dequeue, so tasks execute strictly in
// dequeue order; each task still runs in its own goroutine so a slow remote
// write never blocks enqueueing.
type Scheduler struct {
	store Store
	exec  *Executor
	inv   *Invalidator
	log   zerolog.Logger

	mu      sync.Mutex
	pending taskHeap
	seq     uint64

	sheetLock sync.Mutex
	wake      chan struct{}
	quit      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewScheduler(store Store, exec *Executor, inv *Invalidator, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store: store,
		exec:  exec,
		inv:   inv,
		log:   log.With().Str("component", "scheduler").Logger(),
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}
}

// Start launches the dispatch loop.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.dispatch()
	})
}

// Stop stops dispatching new tasks and waits for in-flight tasks to finish.
// Queued tasks stay persisted with status queued.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	s.wg.Wait()
}

// Submit persists a task and enqueues it, returning the task id. Enqueueing
// never blocks on the mutation lock.
func (s *Scheduler) Submit(ctx context.Context, taskType TaskType, payload json.RawMessage, ownerID string) (string, error) {
	priority := priorityAdd
	if strings.HasPrefix(string(taskType), "remove_") {
		priority = priorityRemove
	}
	task := &Task{
		TaskID:    uuid.NewString()[:taskIDLength],
		Priority:  priority,
		Type:      taskType,
		Payload:   payload,
		OwnerID:   ownerID,
		Status:    TaskStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return "", err
	}

	s.mu.Lock()
	heap.Push(&s.pending, queuedTask{priority: priority, seq: s.seq, taskID: task.TaskID})
	s.seq++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.log.Info().
		Str("task_id", task.TaskID).
		Str("type", string(taskType)).
		Str("owner", ownerID).
		Msg("task queued")
	return task.TaskID, nil
}

// Status returns the durable record of a task.
func (s *Scheduler) Status(ctx context.Context, taskID string) (*Task, error) {
	return s.store.GetTask(ctx, taskID)
}

// List returns tasks matching the filter.
func (s *Scheduler) List(ctx context.Context, filter Filter) ([]*Task, error) {
	return s.store.ListTasks(ctx, filter)
}

func (s *Scheduler) dispatch() {
	defer s.wg.Done()
	for {
		taskID, ok := s.next()
		if !ok {
			return
		}
		s.sheetLock.Lock()
		s.wg.Add(1)
		go func(taskID string) {
			defer s.wg.Done()
			defer s.sheetLock.Unlock()
			s.run(taskID)
		}(taskID)
	}
}

func (s *Scheduler) next() (string, bool) {
	for {
		s.mu.Lock()
		if s.pending.Len() > 0 {
			item := heap.Pop(&s.pending).(queuedTask)
			s.mu.Unlock()
			return item.taskID, true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.quit:
			return "", false
		}
	}
}

func (s *Scheduler) run(taskID string) {
	ctx := context.Background()
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		s.log.Error().Err(err).Str("task_id", taskID).Msg("queued task missing from store")
		return
	}

	log := s.log.With().Str("task_id", taskID).Str("type", string(task.Type)).Logger()
	log.Info().Msg("task processing")
	if err := s.store.UpdateTaskStatus(ctx, taskID, TaskStatusProcessing, nil, ""); err != nil {
		log.Error().Err(err).Msg("status update failed")
		return
	}

	result, err := s.exec.Execute(ctx, task.Type, task.Payload)
	if err != nil {
		log.Error().Err(err).Msg("task failed")
		if uerr := s.store.UpdateTaskStatus(ctx, taskID, TaskStatusFailed, nil, err.Error()); uerr != nil {
			log.Error().Err(uerr).Msg("status update failed")
		}
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("result encode failed")
		encoded = nil
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, TaskStatusCompleted, encoded, ""); err != nil {
		log.Error().Err(err).Msg("status update failed")
		return
	}
	log.Info().Msg("task completed")

	if s.inv != nil {
		s.inv.AfterMutation(ctx, result.Date)
	}
}
