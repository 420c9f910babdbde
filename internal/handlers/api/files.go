package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sharebox/internal/sharing"
)

// FileHandler handles file registration, listing and single downloads.
type FileHandler struct {
	svc *sharing.Service
	log *zap.Logger
}

// NewFileHandler creates a new API file handler.
func NewFileHandler(svc *sharing.Service, log *zap.Logger) *FileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileHandler{svc: svc, log: log}
}

// Register records a file and returns a presigned upload URL.
func (h *FileHandler) Register(c fiber.Ctx) error {
	var body struct {
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		MimeType string `json:"mimeType"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.svc.RegisterFile(c.Context(), c.Params("link"), sharing.RegisterFileInput{
		Filename: body.Filename,
		Size:     body.Size,
		MimeType: body.MimeType,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return jsonCreated(c, resp)
}

// List returns the share's files with download URLs.
func (h *FileHandler) List(c fiber.Ctx) error {
	resp, err := h.svc.ListFiles(c.Context(), c.Params("link"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return jsonSuccess(c, resp)
}

// Download returns a short-lived download URL for one file.
func (h *FileHandler) Download(c fiber.Ctx) error {
	fileID, err := uuid.Parse(c.Params("fileId"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "File not found")
	}

	resp, err := h.svc.DownloadURL(c.Context(), c.Params("link"), fileID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return jsonSuccess(c, resp)
}
