package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tracker is the process-wide registry of in-flight upload sessions. The
// registry map is guarded by its own lock; all per-session mutation happens
// under the session's mutex, so chunks for different uploads never contend.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*session

	scratchRoot string
	idleTimeout time.Duration
	log         zerolog.Logger
}

// NewTracker builds a tracker rooted at scratchRoot. Sessions with no chunk
// activity for idleTimeout are reclaimed by the sweep.
func NewTracker(scratchRoot string, idleTimeout time.Duration, log zerolog.Logger) *Tracker {
	return &Tracker{
		sessions:    make(map[string]*session),
		scratchRoot: scratchRoot,
		idleTimeout: idleTimeout,
		log:         log.With().Str("component", "upload_tracker").Logger(),
	}
}

// getOrCreate returns the session for req.UploadID, creating it from the
// request's declared metadata on first contact. Declared values that conflict
// with the session's recorded ones are a hard reject, not a reset.
func (t *Tracker) getOrCreate(req ChunkRequest) (*session, error) {
	t.mu.Lock()
	s, ok := t.sessions[req.UploadID]
	if !ok {
		now := time.Now()
		s = &session{
			id:           req.UploadID,
			filename:     req.Filename,
			contentType:  req.ContentType,
			totalChunks:  req.TotalChunks,
			chunkSize:    req.ChunkSize,
			totalSize:    req.TotalSize,
			received:     make(map[int]int64),
			status:       StatusReceiving,
			tempDir:      filepath.Join(t.scratchRoot, req.UploadID),
			createdAt:    now,
			lastActivity: now,
		}
		t.sessions[req.UploadID] = s
	}
	t.mu.Unlock()

	if !ok {
		if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
			t.forget(s.id)
			return nil, &StorageError{Op: "create scratch dir", Err: err}
		}
		return s, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.TotalChunks != s.totalChunks {
		return nil, &ValidationError{Field: "total_chunks", Reason: fmt.Sprintf("declared %d, session expects %d", req.TotalChunks, s.totalChunks)}
	}
	if req.TotalSize != s.totalSize {
		return nil, &ValidationError{Field: "total_size", Reason: fmt.Sprintf("declared %d, session expects %d", req.TotalSize, s.totalSize)}
	}
	if req.ChunkSize > 0 && s.chunkSize > 0 && req.ChunkSize != s.chunkSize {
		return nil, &ValidationError{Field: "chunk_size", Reason: fmt.Sprintf("declared %d, session expects %d", req.ChunkSize, s.chunkSize)}
	}
	return s, nil
}

// recordChunk marks one chunk as persisted and reports whether this call
// completed the set. The completion check and the receiving → reassembling
// transition happen under the session mutex, so even two simultaneous final
// chunks produce exactly one true return.
func (t *Tracker) recordChunk(s *session, index int, size int64) (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusReceiving {
		return s.snapshotLocked(), false
	}

	s.received[index] = size
	s.lastActivity = time.Now()

	if len(s.received) == s.totalChunks {
		s.status = StatusReassembling
		return s.snapshotLocked(), true
	}
	return s.snapshotLocked(), false
}

// Progress returns the current snapshot for uploadID, or ErrSessionNotFound.
func (t *Tracker) Progress(uploadID string) (Progress, error) {
	t.mu.RLock()
	s, ok := t.sessions[uploadID]
	t.mu.RUnlock()
	if !ok {
		return Progress{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

func (t *Tracker) forget(uploadID string) {
	t.mu.Lock()
	delete(t.sessions, uploadID)
	t.mu.Unlock()
}

// StartSweep launches the periodic idle sweep and returns a stop function.
func (t *Tracker) StartSweep(every time.Duration) func() {
	if every <= 0 || t.idleTimeout <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				t.sweepOnce(time.Now())
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}

// sweepOnce fails and reclaims sessions idle past the timeout, and drops
// terminal sessions from the registry once their polling window has passed.
// Sessions mid-pipeline (reassembling and later) are left to finish.
func (t *Tracker) sweepOnce(now time.Time) {
	t.mu.RLock()
	candidates := make([]*session, 0, len(t.sessions))
	for _, s := range t.sessions {
		candidates = append(candidates, s)
	}
	t.mu.RUnlock()

	for _, s := range candidates {
		s.mu.Lock()
		idle := now.Sub(s.lastActivity) >= t.idleTimeout
		abandoned := idle && s.status == StatusReceiving
		terminal := s.status == StatusCompleted || s.status == StatusFailed
		if abandoned {
			s.status = StatusFailed
		}
		s.mu.Unlock()

		if !idle {
			continue
		}

		switch {
		case abandoned:
			if err := os.RemoveAll(s.tempDir); err != nil {
				t.log.Error().Err(err).Str("upload_id", s.id).Msg("failed to reclaim scratch dir")
			}
			t.forget(s.id)
			t.log.Info().Str("upload_id", s.id).Str("event", "session_swept").Msg("abandoned upload reclaimed")
		case terminal:
			t.forget(s.id)
		}
	}
}
