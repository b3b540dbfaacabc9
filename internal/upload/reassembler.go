package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// reassembledFile is the concatenated upload, still in scratch storage,
// pending deduplication and finalization.
type reassembledFile struct {
	path string
	size int64
}

// reassemble concatenates the session's chunk files in ascending index order
// into a single scratch file, streaming chunk-by-chunk so the full upload is
// never held in memory. On success the per-chunk files are removed and only
// the reassembled file remains.
func (p *Pipeline) reassemble(s *session) (*reassembledFile, error) {
	dest := s.assembledPath()
	out, err := os.Create(dest)
	if err != nil {
		return nil, &StorageError{Op: "reassemble", Err: err}
	}

	var written int64
	for i := 0; i < s.totalChunks; i++ {
		chunk, err := os.Open(s.chunkPath(i))
		if err != nil {
			out.Close()
			// The tracker confirmed completeness, so a missing chunk file
			// means scratch storage was deleted out-of-band.
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &IncompleteUploadError{UploadID: s.id, MissingIndex: i}
			}
			return nil, &StorageError{Op: "reassemble", Err: err}
		}

		n, err := io.Copy(out, chunk)
		chunk.Close()
		if err != nil {
			out.Close()
			return nil, &StorageError{Op: "reassemble", Err: err}
		}
		written += n
	}

	if err := out.Close(); err != nil {
		return nil, &StorageError{Op: "reassemble", Err: err}
	}

	if written != s.totalSize {
		return nil, &ValidationError{Field: "total_size", Reason: fmt.Sprintf("declared %d bytes, reassembled %d", s.totalSize, written)}
	}

	for i := 0; i < s.totalChunks; i++ {
		if err := os.Remove(s.chunkPath(i)); err != nil {
			p.log.Warn().Err(err).Str("upload_id", s.id).Int("chunk", i).Msg("failed to remove chunk file after reassembly")
		}
	}

	p.log.Debug().
		Str("upload_id", s.id).
		Int64("size", written).
		Int("chunks", s.totalChunks).
		Msg("upload reassembled")

	return &reassembledFile{path: dest, size: written}, nil
}
