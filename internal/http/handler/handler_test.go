package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filehost/internal/model"
	"filehost/internal/service"
	serviceMocks "filehost/internal/service/mocks"
	"filehost/internal/storage"
	"filehost/internal/upload"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// chunkRequest builds a multipart chunk upload request.
func chunkRequest(t *testing.T, fields map[string]string, payload []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile("chunk", "blob")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/chunks", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadChunk(t *testing.T) {
	fields := map[string]string{
		"upload_id":    "up1",
		"chunk_index":  "0",
		"total_chunks": "2",
		"total_size":   "200",
		"filename":     "photo.png",
		"content_type": "image/png",
	}

	t.Run("intermediate chunk accepted", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		mockSvc.On("ReceiveChunk", mock.Anything, mock.MatchedBy(func(req upload.ChunkRequest) bool {
			return req.UploadID == "up1" && req.Index == 0 && req.TotalChunks == 2 &&
				req.TotalSize == 200 && req.Filename == "photo.png" && req.PayloadSize == 100
		})).Return(&upload.Ack{Progress: upload.Progress{
			UploadID: "up1", Status: upload.StatusReceiving, ReceivedChunks: 1, TotalChunks: 2,
		}}, nil).Once()

		resp, err := app.Test(chunkRequest(t, fields, bytes.Repeat([]byte{'a'}, 100)))
		require.NoError(t, err)

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var ack upload.Ack
		json.NewDecoder(resp.Body).Decode(&ack)
		assert.Equal(t, 1, ack.ReceivedChunks)
		assert.Nil(t, ack.File)
		mockSvc.AssertExpectations(t)
	})

	t.Run("completing chunk returns the file", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		mockSvc.On("ReceiveChunk", mock.Anything, mock.Anything).
			Return(&upload.Ack{
				Progress: upload.Progress{UploadID: "up1", Status: upload.StatusCompleted, Percent: 100},
				File:     &model.File{ID: "file-1", Filename: "photo.png"},
			}, nil).Once()

		resp, err := app.Test(chunkRequest(t, fields, bytes.Repeat([]byte{'b'}, 100)))
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var ack upload.Ack
		json.NewDecoder(resp.Body).Decode(&ack)
		require.NotNil(t, ack.File)
		assert.Equal(t, "file-1", ack.File.ID)
	})

	t.Run("missing chunk field", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("upload_id", "up1"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/uploads/chunks", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "CHUNK_REQUIRED", body.Error.Code)
	})

	t.Run("malformed chunk_index", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		bad := map[string]string{
			"upload_id": "up1", "chunk_index": "abc", "total_chunks": "2", "total_size": "200",
		}
		resp, _ := app.Test(chunkRequest(t, bad, []byte("x")))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("validation error from the pipeline", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		mockSvc.On("ReceiveChunk", mock.Anything, mock.Anything).
			Return(nil, &upload.ValidationError{Field: "total_size", Reason: "must be positive"}).Once()

		resp, _ := app.Test(chunkRequest(t, fields, []byte("x")))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	})

	t.Run("incomplete upload maps to conflict", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		mockSvc.On("ReceiveChunk", mock.Anything, mock.Anything).
			Return(nil, &upload.IncompleteUploadError{UploadID: "up1", MissingIndex: 1}).Once()

		resp, _ := app.Test(chunkRequest(t, fields, []byte("x")))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("storage error maps to 500", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockUploadService)
		app := fiber.New()
		app.Post("/uploads/chunks", UploadChunk(mockSvc))

		mockSvc.On("ReceiveChunk", mock.Anything, mock.Anything).
			Return(nil, &upload.StorageError{Op: "persist chunk", Err: errors.New("disk full")}).Once()

		resp, _ := app.Test(chunkRequest(t, fields, []byte("x")))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "STORAGE_ERROR", body.Error.Code)
	})
}

func TestUploadProgress(t *testing.T) {
	mockSvc := new(serviceMocks.MockUploadService)
	app := fiber.New()
	app.Get("/uploads/:id/progress", UploadProgress(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Progress", mock.Anything, "up1").
			Return(upload.Progress{
				UploadID: "up1", Status: upload.StatusReceiving,
				ReceivedChunks: 2, TotalChunks: 4, Percent: 50,
			}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/uploads/up1/progress", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var prog upload.Progress
		json.NewDecoder(resp.Body).Decode(&prog)
		assert.Equal(t, 2, prog.ReceivedChunks)
		assert.InDelta(t, 50.0, prog.Percent, 0.01)
	})

	t.Run("unknown session", func(t *testing.T) {
		mockSvc.On("Progress", mock.Anything, "ghost").
			Return(upload.Progress{}, upload.ErrSessionNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/uploads/ghost/progress", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestListFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/files", ListFiles(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.FileListResult{
			Items: []model.File{{ID: uuid.New().String(), Filename: "test.pdf"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body service.FileListResult
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, 1, body.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/files?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Get("/files/:id", GetFile(mockSvc))

	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, id).Return(&model.File{ID: id, Filename: "f.txt"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/files/not-a-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDownloadFile(t *testing.T) {
	id := uuid.New().String()

	t.Run("presigned backend redirects", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockFileService)
		app := fiber.New()
		app.Get("/files/:id/download", DownloadFile(mockSvc))

		mockSvc.On("PresignDownload", mock.Anything, id, presignExpiry).
			Return("https://example.com/signed", nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://example.com/signed", resp.Header.Get("Location"))
	})

	t.Run("local backend streams", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockFileService)
		app := fiber.New()
		app.Get("/files/:id/download", DownloadFile(mockSvc))

		mockSvc.On("PresignDownload", mock.Anything, id, presignExpiry).
			Return("", storage.ErrPresignNotSupported).Once()
		mockSvc.On("Download", mock.Anything, id).
			Return(io.NopCloser(strings.NewReader("content")),
				&model.File{ID: id, Filename: "f.txt", ContentType: "text/plain", Size: 7}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

		data, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "content", string(data))
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockFileService)
		app := fiber.New()
		app.Get("/files/:id/download", DownloadFile(mockSvc))

		mockSvc.On("PresignDownload", mock.Anything, id, presignExpiry).
			Return("", service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockFileService)
	app := fiber.New()
	app.Delete("/files/:id", DeleteFile(mockSvc))

	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/files/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/files/abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.ErrTeapot
	})

	t.Run("unknown route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})

	t.Run("other fiber errors use the generic envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusTeapot, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	})
}
