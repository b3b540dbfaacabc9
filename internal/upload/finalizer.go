package upload

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"filehost/internal/model"
	"filehost/internal/storage"
)

const putMaxTries = 3

// finalize commits the upload: new content is moved to permanent storage at
// its hash-derived key, deduplicated content only gains a logical reference.
// On success the session completes and the finished file is emitted to the
// downstream processor.
func (p *Pipeline) finalize(ctx context.Context, s *session, res *dedupResult) (*model.File, error) {
	s.setStatus(StatusFinalizing)

	if res.isNew {
		if err := p.putWithRetry(ctx, res); err != nil {
			// Release the hash reservation so a later upload of the same
			// content can retry the placement; the reassembled file stays in
			// scratch for manual inspection.
			if _, _, derr := p.repo.DeleteObjectIfUnreferenced(ctx, res.object.ContentHash); derr != nil {
				p.log.Error().Err(derr).Str("content_hash", res.object.ContentHash).Msg("failed to release hash reservation")
			}
			p.fail(s, false, err)
			return nil, &StorageError{Op: "finalize", Err: err}
		}
		p.metrics.bytesStored.Add(float64(res.object.Size))
	}

	file, err := p.repo.CreateFile(ctx, &model.File{
		ID:          uuid.NewString(),
		Filename:    s.filename,
		ContentType: s.contentType,
		Size:        res.object.Size,
		ContentHash: res.object.ContentHash,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		p.fail(s, false, err)
		return nil, fmt.Errorf("record file: %w", err)
	}

	// The reassembled bytes are durable (or were a duplicate); the whole
	// scratch dir can go, including any stray chunk a late duplicate managed
	// to land after reassembly.
	if rerr := os.RemoveAll(s.tempDir); rerr != nil {
		p.log.Warn().Err(rerr).Str("upload_id", s.id).Msg("failed to remove session scratch dir")
	}

	s.setStatus(StatusCompleted)
	p.metrics.uploadsCompleted.Inc()

	p.proc.Enqueue(model.FinishedFile{
		FileID:       file.ID,
		Filename:     file.Filename,
		ContentType:  file.ContentType,
		ContentHash:  file.ContentHash,
		StoragePath:  res.object.StoragePath,
		Size:         file.Size,
		Deduplicated: !res.isNew,
	})

	p.log.Info().
		Str("event", "upload_completed").
		Str("upload_id", s.id).
		Str("file_id", file.ID).
		Str("content_hash", file.ContentHash).
		Bool("deduplicated", !res.isNew).
		Int64("size", file.Size).
		Msg("upload finalized")

	return file, nil
}

// putWithRetry moves the reassembled file to permanent storage, retrying
// transient I/O failures with exponential backoff before giving up.
func (p *Pipeline) putWithRetry(ctx context.Context, res *dedupResult) error {
	_, err := backoff.Retry(ctx, func() (storage.ObjectInfo, error) {
		return p.store.PutFile(ctx, res.object.StoragePath, res.assembled.path, storage.PutOptions{})
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(putMaxTries))
	return err
}
