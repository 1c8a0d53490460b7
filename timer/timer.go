// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

type Task struct {
	Id       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager 定时器管理器：小根堆 + 100ms 轮询。回调在独立 goroutine 执行。
type Manager struct {
	queue   taskQueue
	mutex   sync.Mutex
	nextId  int64
	trigger chan *Task
	done    chan struct{}
	once    sync.Once
}

func NewManager() *Manager {
	manager := &Manager{
		queue:   make(taskQueue, 0),
		trigger: make(chan *Task, 1000),
		done:    make(chan struct{}),
		nextId:  1,
	}
	heap.Init(&manager.queue)
	go manager.process()
	return manager
}

// Schedule runs callback once after delay.
func (m *Manager) Schedule(delay time.Duration, callback func()) int64 {
	return m.add(delay, 0, callback)
}

// ScheduleRepeating runs callback after delay and then every interval.
func (m *Manager) ScheduleRepeating(delay, interval time.Duration, callback func()) int64 {
	return m.add(delay, interval, callback)
}

func (m *Manager) add(delay, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		Id:       m.nextId,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextId++

	heap.Push(&m.queue, task)
	return task.Id
}

// Cancel removes a pending task. Already-fired callbacks are unaffected.
func (m *Manager) Cancel(taskId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.Id == taskId {
			heap.Remove(&m.queue, i)
			break
		}
	}
}

// Stop shuts down the polling loop. Pending tasks are dropped.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *Manager) process() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return

		case <-ticker.C:
			m.mutex.Lock()
			now := time.Now()

			for m.queue.Len() > 0 {
				task := m.queue[0]
				if task.Execute.After(now) {
					break
				}

				heap.Pop(&m.queue)
				m.trigger <- task

				if task.Interval > 0 {
					task.Execute = now.Add(task.Interval)
					heap.Push(&m.queue, task)
				}
			}
			m.mutex.Unlock()

		case task := <-m.trigger:
			go task.Callback()
		}
	}
}
