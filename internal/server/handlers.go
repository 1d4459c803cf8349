package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/storage/export"
	"github.com/danilshahmanov/Infotecs/internal/storage/ingestion"
	"github.com/danilshahmanov/Infotecs/internal/storage/query"
	"github.com/danilshahmanov/Infotecs/internal/validation"
)

// Response messages.
const (
	msgFileNotUploaded = "file is not uploaded"
	msgUploadTooLarge  = "file exceeds the maximum upload size"
)

// fail writes err as a plain-text message with its mapped status.
func (s *Server) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		msg := "request failed"
		if errors.IsPersistence(err) {
			msg = "store failure"
		}
		logging.Enrich(c.Request.Context(), log).Error(msg,
			"path", c.FullPath(), "error", err)
	}
	c.String(status, err.Error())
}

func notFoundMessage(fileID string) string {
	return fmt.Sprintf("file with name '%s' is not found.", fileID)
}

// =============================================================================
// Upload
// =============================================================================

func (s *Server) handleUpload(c *gin.Context) {
	if c.Request.ContentLength > s.cfg.MaxUploadSize {
		c.String(http.StatusRequestEntityTooLarge, msgUploadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		c.String(http.StatusBadRequest, msgFileNotUploaded)
		return
	}

	author := c.Query("authorName")
	if err := validation.ValidateAuthor(author); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, errors.Wrap(err, "open upload"))
		return
	}
	defer file.Close()

	_, err = s.deps.Ingester.ProcessFile(c.Request.Context(), ingestion.Request{
		FileID: header.Filename,
		Author: author,
		Source: file,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// =============================================================================
// Read-back
// =============================================================================

func (s *Server) handleValues(c *gin.Context) {
	ctx := c.Request.Context()
	fileID := c.Param("fileId")

	format := c.DefaultQuery("format", export.FormatJSON)
	if format != export.FormatJSON && format != export.FormatParquet {
		c.String(http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	if err := s.deps.Exporter.CheckExists(ctx, fileID); err != nil {
		if errors.IsNotFound(err) {
			c.String(http.StatusNotFound, notFoundMessage(fileID))
			return
		}
		s.fail(c, err)
		return
	}

	var err error
	switch format {
	case export.FormatParquet:
		c.Header("Content-Type", "application/vnd.apache.parquet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileID+".parquet"))
		c.Status(http.StatusOK)
		_, err = s.deps.Exporter.WriteParquet(ctx, fileID, c.Writer)
	default:
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)
		_, err = s.deps.Exporter.WriteJSON(ctx, fileID, c.Writer)
	}

	// The status line is already on the wire; all that is left is to
	// cut the stream short.
	if err != nil {
		logging.Enrich(ctx, log).Error("export aborted", "file_id", fileID, "format", format, "error", err)
		c.Abort()
	}
}

func (s *Server) handleDownload(c *gin.Context) {
	ctx := c.Request.Context()
	fileID := c.Param("fileId")

	meta, err := s.deps.Files.GetStoredFile(ctx, fileID)
	if err != nil {
		if errors.IsNotFound(err) {
			c.String(http.StatusNotFound, notFoundMessage(fileID))
			return
		}
		s.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileID))
	c.Header("Content-Length", strconv.FormatInt(meta.Size, 10))
	c.Header("X-Content-SHA256", meta.SHA256)
	c.Status(http.StatusOK)

	if _, err := s.deps.Files.CopyFile(ctx, fileID, c.Writer); err != nil {
		logging.Enrich(ctx, log).Error("download aborted", "file_id", fileID, "error", err)
		c.Abort()
	}
}

// =============================================================================
// Summaries
// =============================================================================

func (s *Server) handleSummary(c *gin.Context) {
	fileID := c.Param("fileId")

	summary, err := s.deps.Querier.Summary(c.Request.Context(), fileID)
	if err != nil {
		if errors.IsNotFound(err) {
			c.String(http.StatusNotFound, notFoundMessage(fileID))
			return
		}
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleResults(c *gin.Context) {
	filter, err := query.ParseFilter(c.Request.URL.Query())
	if err != nil {
		s.fail(c, err)
		return
	}

	summaries, err := s.deps.Querier.Results(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// =============================================================================
// Health
// =============================================================================

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.deps.Files.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
