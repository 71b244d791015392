package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/velichkin/newsgrab/app/cfg"
	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/pipeline"
	"github.com/velichkin/newsgrab/app/scrape"
	"github.com/velichkin/newsgrab/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler is the cron-like trigger at the system boundary: a ticker loop
// that enqueues a bulk scrape pass plus per-source full-text extraction work
// onto a small worker pool. The pipeline never schedules itself.
type Scheduler struct {
	registry          *sources.Registry
	orchestrator      *pipeline.Orchestrator
	storyRepo         database.StoryRepository
	httpClient        *http.Client
	fullTextExtractor *scrape.FullTextExtractor
	userAgent         string
	interval          time.Duration
	workerCount       int
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	taskQueue         chan TaskInterface
}

func NewScheduler(registry *sources.Registry, orchestrator *pipeline.Orchestrator,
	storyRepo database.StoryRepository, httpClient *http.Client,
	fullTextExtractor *scrape.FullTextExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		registry:          registry,
		orchestrator:      orchestrator,
		storyRepo:         storyRepo,
		httpClient:        httpClient,
		fullTextExtractor: fullTextExtractor,
		userAgent:         cfg.UserAgent,
		interval:          time.Duration(cfg.SchedulerInterval) * time.Second,
		// Sizes the task loop only; per-source scrape concurrency is the
		// orchestrator's pool (cfg.WorkerCount).
		workerCount: 2,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	scrapeTask := NewScrapeDueTask(s.orchestrator)
	if err := s.EnqueueTask(scrapeTask); err != nil {
		slog.Warn("Failed to enqueue ScrapeDueTask", "error", err)
	}

	for _, source := range s.registry.ListEnabled() {
		if !source.Settings.ExtractFullText {
			continue
		}

		extractTask := NewExtractFullTextTask(source, s.httpClient, s.fullTextExtractor,
			s.storyRepo, s.userAgent)
		if err := s.EnqueueTask(extractTask); err != nil {
			slog.Warn("Failed to enqueue ExtractFullTextTask", "source", source.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID,
			"type", string(task.GetType()), "id", task.GetID(),
			"retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()),
				"source", task.GetSourceName(), "retry_count", task.GetRetryCount(),
				"max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry",
						"type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry",
							"type", string(task.GetType()), "id", task.GetID(),
							"retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()),
				"id", task.GetID(), "retry_count", task.GetRetryCount(),
				"max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
