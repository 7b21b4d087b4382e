package workerpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs submitted tasks on a fixed set of workers. Tasks are
// grouped into Rooms so independent scans can collect their own results.
type WorkerPool struct {
	config    Config
	taskQueue chan Task
}

type Config struct {
	WorkerCount  int
	GlobalBuffer int
}

type Room struct {
	result               []interface{}
	resultMutex          sync.Mutex
	asyncCollectorWait   sync.WaitGroup
	asyncCollectorActive atomic.Bool
	resultChan           chan interface{}
	wg                   sync.WaitGroup
	wp                   *WorkerPool
}

type Task struct {
	run  func() interface{}
	room *Room
}

func NewWorkerPool(config Config) *WorkerPool {
	if config.WorkerCount < 1 {
		config.WorkerCount = runtime.NumCPU()
	}
	if config.GlobalBuffer < 1 {
		config.GlobalBuffer = 10000
	}

	wp := &WorkerPool{
		config:    config,
		taskQueue: make(chan Task, config.GlobalBuffer),
	}

	for i := 0; i < config.WorkerCount; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	for t := range wp.taskQueue {
		t.room.resultChan <- t.run()
		t.room.wg.Done()
	}
}

func (wp *WorkerPool) CreateRoom(size int) *Room {
	return &Room{
		resultChan: make(chan interface{}, size),
		wp:         wp,
	}
}

func (ro *Room) NewTaskWaitForFreeSlot(job func() interface{}) {
	ro.wg.Add(1)
	ro.wp.taskQueue <- Task{run: job, room: ro}
}

func (ro *Room) NewTask(job func() interface{}) error {
	if len(ro.wp.taskQueue) == cap(ro.wp.taskQueue) {
		return fmt.Errorf("global buffer is full, wait for tasks to finish or increase the buffer size")
	}
	if len(ro.resultChan) == cap(ro.resultChan) {
		return fmt.Errorf("room buffer is full, wait for tasks to finish or increase the buffer size")
	}

	ro.NewTaskWaitForFreeSlot(job)
	return nil
}

// Collect blocks until all tasks of the room finished and returns their
// results in completion order.
func (ro *Room) Collect() []interface{} {
	go ro.WaitAndClose()
	results := make([]interface{}, 0)

	for result := range ro.resultChan {
		results = append(results, result)
	}

	return results
}

func (ro *Room) AsyncCollector() {
	if ro.asyncCollectorActive.Load() {
		return
	}

	ro.asyncCollectorActive.Store(true)
	ro.asyncCollectorWait.Add(1)

	go func() {
		defer ro.asyncCollectorActive.Store(false)
		defer ro.asyncCollectorWait.Done()

		ro.resultMutex.Lock()
		for result := range ro.resultChan {
			ro.result = append(ro.result, result)
		}
		ro.resultMutex.Unlock()
	}()
}

func (ro *Room) GetAsyncResults() ([]interface{}, error) {
	go ro.WaitAndClose()
	ro.asyncCollectorWait.Wait()

	ro.resultMutex.Lock()
	defer ro.resultMutex.Unlock()

	return ro.result, nil
}

func (ro *Room) WaitAndClose() {
	ro.wg.Wait()
	close(ro.resultChan)
}
