package downloader

import (
	"context"
	"sync"
	"time"

	"imgharvest/pkg/logger"
)

// Job is one candidate to fetch and convert
type Job struct {
	Index int
	URL   string
}

// Result is the outcome of processing a Job
type Result struct {
	Job Job
	// Data holds the converted image, nil when the candidate was skipped or failed
	Data    []byte
	Skipped bool
	// Fetched reports that some fetch path returned bytes, even if conversion failed
	Fetched bool
	// Fallback reports that the primary fetch failed and the image load path was used
	Fallback bool
	Err      error
	Duration time.Duration
}

// Processor fetches and converts a single candidate
type Processor interface {
	Process(ctx context.Context, job Job) Result
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(ctx context.Context, job Job) Result

func (f ProcessorFunc) Process(ctx context.Context, job Job) Result { return f(ctx, job) }

// WorkerPool runs a Processor over jobs with a fixed number of workers
type WorkerPool struct {
	numWorkers int
	processor  Processor
	logger     logger.Logger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(numWorkers int, processor Processor, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		processor:  processor,
		logger:     log,
	}
}

// Run processes jobs and streams results in completion order. The channel is
// closed once every job is processed or ctx is done; the caller must cancel
// ctx if it stops reading early.
func (wp *WorkerPool) Run(ctx context.Context, jobs []Job) <-chan Result {
	jobQueue := make(chan Job)
	resultQueue := make(chan Result, wp.numWorkers)

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"jobs":        len(jobs),
	})

	go func() {
		defer close(jobQueue)
		for _, job := range jobs {
			select {
			case jobQueue <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go wp.worker(ctx, i, jobQueue, resultQueue, &wg)
	}

	go func() {
		wg.Wait()
		close(resultQueue)
		wp.logger.Debug("Worker pool stopped")
	}()

	return resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		}

		start := time.Now()
		result := wp.processor.Process(ctx, job)
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}

		select {
		case results <- result:
		case <-ctx.Done():
			return
		}
	}
}
