package api

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sharebox/internal/archive"
	"sharebox/internal/blob"
	"sharebox/internal/models"
	"sharebox/internal/sharing"
	"sharebox/internal/validation"
)

// ArchiveHandler streams every file of a share as one ZIP.
type ArchiveHandler struct {
	svc      *sharing.Service
	streamer *archive.Streamer
	log      *zap.Logger
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(svc *sharing.Service, streamer *archive.Streamer, log *zap.Logger) *ArchiveHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArchiveHandler{svc: svc, streamer: streamer, log: log}
}

// Download writes the ZIP directly to the response as it is produced.
func (h *ArchiveHandler) Download(c fiber.Ctx) error {
	share, files, err := h.svc.ActiveShareFiles(c.Context(), c.Params("link"))
	if err != nil {
		return writeError(c, h.log, err)
	}

	entries := make([]archive.Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, archive.Entry{
			Name:     f.Filename,
			BlobKey:  f.BlobKey,
			Modified: f.UploadedAt,
		})
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, blob.ContentDisposition(archiveName(share)))
	c.Set(fiber.HeaderCacheControl, "no-store")

	pr, pw := io.Pipe()
	go h.writeArchive(context.Background(), pw, entries, share.ID.String())

	// The body is read after the handler returns. A stream error reaches
	// fasthttp as a read error, which drops the connection instead of ending
	// the chunked body cleanly.
	return c.SendStream(pr)
}

// writeArchive streams the ZIP into pw and closes it with the outcome.
func (h *ArchiveHandler) writeArchive(ctx context.Context, pw *io.PipeWriter, entries []archive.Entry, shareID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	res, err := h.streamer.Stream(ctx, &cancelWriter{w: pw, cancel: cancel}, entries)
	if err != nil {
		h.log.Warn("archive stream aborted",
			zap.String("share_id", shareID),
			zap.Int("written", len(res.Written)),
			zap.Error(err),
		)
		pw.CloseWithError(err)
		return
	}

	h.log.Info("archive streamed",
		zap.String("share_id", shareID),
		zap.Int("written", len(res.Written)),
		zap.Int("skipped", len(res.Skipped)),
	)
	pw.Close()
}

// cancelWriter cancels the stream's context on the first failed write. A
// closed pipe means the client is gone, so no more blobs should be fetched.
type cancelWriter struct {
	w      io.Writer
	cancel context.CancelFunc
}

func (cw *cancelWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if err != nil {
		cw.cancel()
	}
	return n, err
}

// archiveName is the download filename for a share's ZIP.
func archiveName(share *models.Share) string {
	if share.Title != nil && *share.Title != "" {
		return validation.SanitizeFilename(*share.Title) + ".zip"
	}
	return "share-" + share.Link + ".zip"
}
