package upload

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"filehost/internal/config"
	"filehost/internal/model"
	"filehost/internal/processor"
	"filehost/internal/repository"
	"filehost/internal/storage"
)

// ChunkRequest is one chunk of one upload as received from the ingress layer.
// TotalChunks, ChunkSize, TotalSize, Filename and ContentType are declared
// metadata; the first chunk for a new UploadID fixes them for the session.
type ChunkRequest struct {
	UploadID    string
	Index       int
	TotalChunks int
	ChunkSize   int64
	TotalSize   int64
	Filename    string
	ContentType string

	Payload     io.Reader
	PayloadSize int64
}

// Ack is the per-chunk acknowledgment. File is set only on the chunk that
// completed the upload and carries the finalized reference.
type Ack struct {
	Progress
	File *model.File `json:"file,omitempty"`
}

// Pipeline is the chunked upload ingestion service: it validates and persists
// chunks, tracks per-upload state, and — on the completing chunk — reassembles,
// deduplicates and finalizes the file. Constructed once at process start.
type Pipeline struct {
	cfg     config.UploadConfig
	tracker *Tracker
	repo    repository.FileRepository
	store   storage.Storage
	proc    processor.Processor
	metrics *Metrics
	log     zerolog.Logger
}

// New constructs the pipeline with its collaborators.
func New(cfg config.UploadConfig, tracker *Tracker, repo repository.FileRepository, store storage.Storage, proc processor.Processor, metrics *Metrics, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		tracker: tracker,
		repo:    repo,
		store:   store,
		proc:    proc,
		metrics: metrics,
		log:     log.With().Str("component", "upload_pipeline").Logger(),
	}
}

// Progress returns the polling snapshot for an upload.
func (p *Pipeline) Progress(ctx context.Context, uploadID string) (Progress, error) {
	return p.tracker.Progress(uploadID)
}

// complete runs reassembly, deduplication and finalization for the session.
// Reached only by the single caller that won the receiving → reassembling
// transition, so each stage executes at most once per upload.
func (p *Pipeline) complete(ctx context.Context, s *session) (*model.File, error) {
	asm, err := p.reassemble(s)
	if err != nil {
		p.fail(s, true, err)
		return nil, err
	}

	res, err := p.deduplicate(ctx, s, asm)
	if err != nil {
		p.fail(s, true, err)
		return nil, err
	}

	file, err := p.finalize(ctx, s, res)
	if err != nil {
		// finalize marked the session failed and kept the reassembled file
		// for inspection
		return nil, err
	}
	return file, nil
}

// fail marks the session failed; when reclaim is set its scratch area is
// released immediately instead of waiting for the sweep.
func (p *Pipeline) fail(s *session, reclaim bool, cause error) {
	s.setStatus(StatusFailed)
	p.metrics.uploadsFailed.Inc()
	if reclaim {
		if err := os.RemoveAll(s.tempDir); err != nil {
			p.log.Error().Err(err).Str("upload_id", s.id).Msg("failed to reclaim scratch dir")
		}
	}
	p.log.Error().
		Err(cause).
		Str("event", "upload_failed").
		Str("upload_id", s.id).
		Bool("scratch_reclaimed", reclaim).
		Msg("upload pipeline failed")
}
