package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
)

// Upload IDs are caller-supplied and become scratch directory names, so they
// are restricted to a filesystem-safe alphabet.
var uploadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ReceiveChunk validates one chunk, persists it to the session's scratch
// area, and updates the tracker. Re-receiving an already stored chunk
// overwrites it without error and does not double-count toward completion.
// The call that completes the chunk set runs the rest of the pipeline inline
// and returns the finalized file in the ack.
func (p *Pipeline) ReceiveChunk(ctx context.Context, req ChunkRequest) (*Ack, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	s, err := p.tracker.getOrCreate(req)
	if err != nil {
		return nil, err
	}

	// Late duplicates after the session left receiving are acknowledged
	// without touching scratch storage.
	if st := s.currentStatus(); st != StatusReceiving {
		return &Ack{Progress: s.snapshot()}, nil
	}

	n, err := p.persistChunk(ctx, s, req)
	if err != nil {
		// The status check above and the write are not atomic: a completing
		// call or the sweep can reclaim the scratch dir in between. When the
		// session has since left receiving, a vanished scratch path is just a
		// late duplicate, not a storage failure.
		if errors.Is(err, fs.ErrNotExist) && s.currentStatus() != StatusReceiving {
			return &Ack{Progress: s.snapshot()}, nil
		}
		return nil, err
	}
	p.metrics.chunksReceived.Inc()

	prog, completed := p.tracker.recordChunk(s, req.Index, n)
	ack := &Ack{Progress: prog}
	if !completed {
		return ack, nil
	}

	file, err := p.complete(ctx, s)
	if err != nil {
		return nil, err
	}
	ack.File = file
	ack.Progress = s.snapshot()
	return ack, nil
}

func (p *Pipeline) validate(req ChunkRequest) error {
	if !uploadIDPattern.MatchString(req.UploadID) {
		return &ValidationError{Field: "upload_id", Reason: "must be 1-64 characters of [A-Za-z0-9_-]"}
	}
	if req.TotalChunks <= 0 {
		return &ValidationError{Field: "total_chunks", Reason: "must be positive"}
	}
	if req.Index < 0 || req.Index >= req.TotalChunks {
		return &ValidationError{Field: "chunk_index", Reason: fmt.Sprintf("out of range [0, %d)", req.TotalChunks)}
	}
	if req.TotalSize <= 0 {
		return &ValidationError{Field: "total_size", Reason: "must be positive"}
	}
	if req.TotalSize > p.cfg.MaxFileSize {
		return &ValidationError{Field: "total_size", Reason: fmt.Sprintf("exceeds limit of %d bytes", p.cfg.MaxFileSize)}
	}
	if req.PayloadSize > p.cfg.ChunkSizeLimit {
		return &ValidationError{Field: "chunk", Reason: fmt.Sprintf("exceeds chunk size limit of %d bytes", p.cfg.ChunkSizeLimit)}
	}
	if req.PayloadSize == 0 && req.Index != req.TotalChunks-1 {
		return &ValidationError{Field: "chunk", Reason: "empty payload for non-final chunk"}
	}
	return nil
}

// persistChunk streams the payload into a uniquely named temp file, then
// renames it into the chunk slot. The rename makes concurrent re-delivery of
// the same (uploadId, index) an atomic overwrite rather than interleaved
// writes to one file.
func (p *Pipeline) persistChunk(ctx context.Context, s *session, req ChunkRequest) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.tempDir, "chunk_*.tmp")
	if err != nil {
		return 0, &StorageError{Op: "persist chunk", Err: err}
	}

	n, err := io.Copy(tmp, req.Payload)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, &StorageError{Op: "persist chunk", Err: err}
	}
	if req.PayloadSize > 0 && n != req.PayloadSize {
		os.Remove(tmp.Name())
		return 0, &ValidationError{Field: "chunk", Reason: fmt.Sprintf("size mismatch: declared %d, received %d", req.PayloadSize, n)}
	}

	if err := os.Rename(tmp.Name(), s.chunkPath(req.Index)); err != nil {
		os.Remove(tmp.Name())
		return 0, &StorageError{Op: "persist chunk", Err: err}
	}
	return n, nil
}
