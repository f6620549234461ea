// internal/api/handlers.go
package api

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"apisense/internal/models"
	recommendapis "apisense/internal/workers/recommendation/recommend-apis"

	"github.com/gin-gonic/gin"
)

const (
	userIDHeader      = "X-User-ID"
	readyCheckTimeout = 2 * time.Second

	// multipart framing around the file itself
	multipartOverhead = 1 << 20
)

var allowedFileExtensions = map[string]bool{".txt": true, ".md": true}

type analyzeRequest struct {
	Description string `json:"description" binding:"required"`
}

type queryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type analyzeResponse struct {
	Success         bool                     `json:"success"`
	Requirements    models.RequirementSet    `json:"requirements"`
	Recommendations models.RecommendationSet `json:"recommendations"`
}

type queryResponse struct {
	Success         bool                     `json:"success"`
	SessionID       string                   `json:"session_id"`
	Requirements    models.RequirementSet    `json:"requirements"`
	Recommendations models.RecommendationSet `json:"recommendations"`
	ConversationID  string                   `json:"conversation_id,omitempty"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) publicHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "API is working"})
}

func (h *Handler) ready(c *gin.Context) {
	checks := make(map[string]string, len(h.opts.Checks))
	ready := true
	for name, check := range h.opts.Checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			ready = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		h.logger.Warn("readiness check failed", map[string]interface{}{"checks": checks})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}

func (h *Handler) analyzeDescription(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		h.validationFailed(c, "The description field is required.")
		return
	}
	if utf8.RuneCountInString(description) > h.opts.MaxDescriptionLen {
		h.validationFailed(c, maxLengthMessage("description", h.opts.MaxDescriptionLen))
		return
	}

	result, err := h.pipeline.AnalyzeDescription(c.Request.Context(), description)
	if err != nil {
		h.pipelineFailed(c, err, "description")
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success:         true,
		Requirements:    result.Requirements,
		Recommendations: result.Recommendations,
	})
}

func (h *Handler) analyzeFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxFileBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.validationFailed(c, "The file field is required.")
		return
	}
	if !allowedFileExtensions[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
		h.validationFailed(c, "The file must be a file of type: txt, md.")
		return
	}
	if fileHeader.Size > h.opts.MaxFileBytes {
		h.validationFailed(c, "The file is too large.")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.validationFailed(c, "The file could not be read.")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.opts.MaxFileBytes))
	if err != nil {
		h.validationFailed(c, "The file could not be read.")
		return
	}
	if strings.TrimSpace(string(content)) == "" {
		h.validationFailed(c, "The file is empty.")
		return
	}

	h.logger.Info("file received", map[string]interface{}{
		"requestId": requestID(c),
		"filename":  fileHeader.Filename,
		"bytes":     len(content),
	})

	result, err := h.pipeline.AnalyzeFile(c.Request.Context(), string(content), fileHeader.Filename)
	if err != nil {
		h.pipelineFailed(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success:         true,
		Requirements:    result.Requirements,
		Recommendations: result.Recommendations,
	})
}

func (h *Handler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.validationFailed(c, "The query field is required.")
		return
	}
	if utf8.RuneCountInString(query) > h.opts.MaxQueryLen {
		h.validationFailed(c, maxLengthMessage("query", h.opts.MaxQueryLen))
		return
	}

	qr, err := h.pipeline.Query(c.Request.Context(), recommendapis.QueryRequest{
		Query:     query,
		UserID:    c.GetHeader(userIDHeader),
		SessionID: strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		h.pipelineFailed(c, err, "query")
		return
	}

	c.JSON(http.StatusOK, queryResponse{
		Success:         true,
		SessionID:       qr.SessionID,
		Requirements:    qr.Result.Requirements,
		Recommendations: qr.Result.Recommendations,
		ConversationID:  qr.ConversationID,
	})
}
