package upload

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// Status is the lifecycle state of an upload session. Transitions only move
// forward; receiving → reassembling is the single contended edge and is won
// by exactly one caller.
type Status string

const (
	StatusReceiving     Status = "receiving"
	StatusReassembling  Status = "reassembling"
	StatusDeduplicating Status = "deduplicating"
	StatusFinalizing    Status = "finalizing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// session is the per-upload state owned by the Tracker. All fields behind mu;
// declared metadata (totalChunks, chunkSize, totalSize, filename) is fixed by
// the first chunk and only validated afterwards.
type session struct {
	mu sync.Mutex

	id          string
	filename    string
	contentType string
	totalChunks int
	chunkSize   int64
	totalSize   int64

	// received maps chunk index to persisted byte count. Grows monotonically;
	// a re-received chunk replaces its entry without changing the count.
	received map[int]int64

	status       Status
	tempDir      string
	createdAt    time.Time
	lastActivity time.Time
}

func (s *session) chunkPath(index int) string {
	return filepath.Join(s.tempDir, fmt.Sprintf("chunk_%d", index))
}

func (s *session) assembledPath() string {
	return filepath.Join(s.tempDir, "assembled")
}

func (s *session) currentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// compareAndSwap flips status from → to and reports whether this caller won.
func (s *session) compareAndSwap(from, to Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != from {
		return false
	}
	s.status = to
	return true
}

// Progress is a point-in-time snapshot of an upload session, exposed for
// client polling.
type Progress struct {
	UploadID       string  `json:"upload_id"`
	Status         Status  `json:"status"`
	ReceivedChunks int     `json:"received_chunks"`
	TotalChunks    int     `json:"total_chunks"`
	BytesReceived  int64   `json:"bytes_received"`
	TotalBytes     int64   `json:"total_bytes"`
	Percent        float64 `json:"percent"`
}

func (s *session) snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *session) snapshotLocked() Progress {
	var bytes int64
	for _, n := range s.received {
		bytes += n
	}
	p := Progress{
		UploadID:       s.id,
		Status:         s.status,
		ReceivedChunks: len(s.received),
		TotalChunks:    s.totalChunks,
		BytesReceived:  bytes,
		TotalBytes:     s.totalSize,
	}
	switch {
	case s.status == StatusCompleted:
		p.Percent = 100
	case s.totalSize > 0:
		p.Percent = float64(bytes) * 100 / float64(s.totalSize)
	}
	return p
}
