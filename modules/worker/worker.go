package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// JobFunc - 작업 처리 함수
type JobFunc func(ctx context.Context, jobID string) error

// Worker - Redis Queue Worker
// job_id 는 "<kind>:<id>" 형식이며 kind 로 처리 함수를 찾는다 (예: reminder:9f1c...)
type Worker struct {
	queue    Queue
	handlers map[string]JobFunc
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewWorker - Worker 생성
func NewWorker(queue Queue) *Worker {
	return &Worker{
		queue:    queue,
		handlers: map[string]JobFunc{},
	}
}

// Handle - kind 에 처리 함수 등록
func (w *Worker) Handle(kind string, fn JobFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = fn
}

// CanHandle - 처리 가능한 job_id 인지 확인
func (w *Worker) CanHandle(jobID string) bool {
	_, ok := w.handlerFor(jobID)
	return ok
}

func (w *Worker) handlerFor(jobID string) (JobFunc, bool) {
	kind, _, found := strings.Cut(jobID, ":")
	if !found || kind == "" {
		return nil, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn, ok := w.handlers[kind]
	return fn, ok
}

// Process - 작업 하나 처리 (kind 기반 라우팅)
func (w *Worker) Process(ctx context.Context, jobID string) error {
	fn, ok := w.handlerFor(jobID)
	if !ok {
		return fmt.Errorf("no handler for job %q", jobID)
	}

	log.Printf("🚀 Processing job: %s", jobID)
	start := time.Now()
	if err := fn(ctx, jobID); err != nil {
		return fmt.Errorf("job %s failed: %w", jobID, err)
	}
	log.Printf("✅ Job %s processing completed (%v)", jobID, time.Since(start).Round(time.Millisecond))
	return nil
}

// Run - ctx 가 끝날 때까지 큐 감시. 작업은 goroutine 으로 처리
func (w *Worker) Run(ctx context.Context) {
	log.Printf("👀 Watching queue: %s", QueueKey)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			log.Println("🛑 Worker stopped")
			return
		default:
		}

		jobID, err := w.queue.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("❌ Redis BRPOP error: %v", err)
			sleep(ctx, 5*time.Second)
			continue
		}
		if jobID == "" {
			continue
		}

		log.Printf("🎯 Received new job: %s", jobID)

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.Process(context.WithoutCancel(ctx), jobID); err != nil {
				log.Printf("❌ %v", err)
			}
		}()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
