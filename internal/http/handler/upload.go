package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"filehost/internal/service"
	"filehost/internal/upload"
)

// UploadChunk accepts one chunk of one upload as multipart/form-data.
//
// Form fields: chunk (file), upload_id, chunk_index, total_chunks, total_size,
// and optionally chunk_size, filename, content_type. Every chunk is answered
// with a progress ack; the chunk that completes the upload returns 201 with
// the finalized file reference.
func UploadChunk(uploads service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("chunk")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "CHUNK_REQUIRED", "chunk file field is required")
		}

		index, err := strconv.Atoi(c.FormValue("chunk_index"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CHUNK_INDEX", "invalid chunk_index")
		}
		totalChunks, err := strconv.Atoi(c.FormValue("total_chunks"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TOTAL_CHUNKS", "invalid total_chunks")
		}
		totalSize, err := strconv.ParseInt(c.FormValue("total_size"), 10, 64)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TOTAL_SIZE", "invalid total_size")
		}
		var chunkSize int64
		if v := c.FormValue("chunk_size"); v != "" {
			chunkSize, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_CHUNK_SIZE", "invalid chunk_size")
			}
		}

		filename := c.FormValue("filename")
		if filename == "" {
			filename = fh.Filename
		}
		contentType := c.FormValue("content_type")
		if contentType == "" {
			contentType = fh.Header.Get("Content-Type")
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "CHUNK_OPEN_ERROR", "cannot open uploaded chunk")
		}
		defer f.Close()

		ack, err := uploads.ReceiveChunk(c.UserContext(), upload.ChunkRequest{
			UploadID:    c.FormValue("upload_id"),
			Index:       index,
			TotalChunks: totalChunks,
			ChunkSize:   chunkSize,
			TotalSize:   totalSize,
			Filename:    filename,
			ContentType: contentType,
			Payload:     f,
			PayloadSize: fh.Size,
		})
		if err != nil {
			return writeUploadError(c, err)
		}

		if ack.File != nil {
			return c.Status(fiber.StatusCreated).JSON(ack)
		}
		return c.Status(fiber.StatusAccepted).JSON(ack)
	}
}

// UploadProgress is the read-only polling endpoint for an upload session.
func UploadProgress(uploads service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prog, err := uploads.Progress(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeUploadError(c, err)
		}
		return c.JSON(prog)
	}
}
