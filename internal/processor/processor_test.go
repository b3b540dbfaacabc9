package processor

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehost/internal/model"
)

// syncBuffer makes the log sink safe for the consuming goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(b.buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestWorker_ProcessesQueuedJobs(t *testing.T) {
	buf := &syncBuffer{}
	w := NewWorker(4, zerolog.New(buf))
	stop := w.Start()

	w.Enqueue(model.FinishedFile{FileID: "f1", ContentType: "image/png", ContentHash: "h1"})
	w.Enqueue(model.FinishedFile{FileID: "f2", ContentType: "application/pdf", ContentHash: "h2"})

	// Stop drains the queue before returning.
	stop()

	lines := buf.Lines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "f1", lines[0]["file_id"])
	assert.Equal(t, "thumbnail", lines[0]["job"])
	assert.Equal(t, "f2", lines[1]["file_id"])
	assert.Equal(t, "metadata", lines[1]["job"])
}

func TestWorker_FullQueueDropsWithoutBlocking(t *testing.T) {
	buf := &syncBuffer{}
	w := NewWorker(1, zerolog.New(buf))
	// Worker not started: the queue holds one job, the second must be dropped
	// rather than block the caller.
	w.Enqueue(model.FinishedFile{FileID: "kept"})
	w.Enqueue(model.FinishedFile{FileID: "dropped"})

	lines := buf.Lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "dropped", lines[0]["file_id"])
	assert.Equal(t, "warn", lines[0]["level"])

	stop := w.Start()
	stop()
}

func TestWorker_StopIdempotent(t *testing.T) {
	w := NewWorker(0, zerolog.Nop())
	stop := w.Start()
	stop()
	stop()
}
