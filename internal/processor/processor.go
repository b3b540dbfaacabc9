package processor

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"filehost/internal/model"
)

// Processor consumes finished files for downstream work (thumbnailing,
// metadata extraction). Enqueue is fire-and-forget: a failure or a full queue
// never rolls back the upload that produced the file.
type Processor interface {
	Enqueue(f model.FinishedFile)
}

// Worker is an in-process Processor backed by a bounded queue and a single
// consuming goroutine.
type Worker struct {
	jobs chan model.FinishedFile
	log  zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWorker builds a worker with the given queue depth.
func NewWorker(buffer int, log zerolog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Worker{
		jobs: make(chan model.FinishedFile, buffer),
		log:  log.With().Str("component", "processor").Logger(),
	}
}

// Start launches the consuming goroutine and returns a stop function. Stop
// drains jobs already queued before returning.
func (w *Worker) Start() func() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for f := range w.jobs {
			w.process(f)
		}
	}()

	return func() {
		w.stopOnce.Do(func() {
			close(w.jobs)
		})
		w.wg.Wait()
	}
}

// Enqueue hands a finished file to the worker. When the queue is full the job
// is dropped and logged; downstream work is independently retryable and must
// not block the upload path.
func (w *Worker) Enqueue(f model.FinishedFile) {
	select {
	case w.jobs <- f:
	default:
		w.log.Warn().
			Str("file_id", f.FileID).
			Str("content_hash", f.ContentHash).
			Msg("processor queue full, dropping finished-file job")
	}
}

func (w *Worker) process(f model.FinishedFile) {
	kind := "metadata"
	if strings.HasPrefix(f.ContentType, "image/") {
		kind = "thumbnail"
	}
	w.log.Info().
		Str("event", "file_processed").
		Str("file_id", f.FileID).
		Str("content_hash", f.ContentHash).
		Str("storage_path", f.StoragePath).
		Str("job", kind).
		Bool("deduplicated", f.Deduplicated).
		Msg("finished file handed to downstream processing")
}
