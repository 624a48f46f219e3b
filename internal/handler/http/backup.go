package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fabdesk/backup-exporter/auth"
	"github.com/fabdesk/backup-exporter/internal/cache"
	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/exporter"
	"github.com/fabdesk/backup-exporter/internal/store"
	"github.com/gin-gonic/gin"
)

type BackupHandler struct {
	pipeline *exporter.Pipeline
	store    store.Store
	cache    cache.Cache
	tokens   auth.Manager
	limits   Limits
}

type Limits struct {
	RateWindow time.Duration
}

func NewBackupHandler(pipeline *exporter.Pipeline, s store.Store, c cache.Cache, tokens auth.Manager, limits Limits) (*BackupHandler, error) {
	if pipeline == nil || s == nil || c == nil || tokens == nil {
		return nil, errors.Internal("backup handler dependencies are nil")
	}
	return &BackupHandler{pipeline: pipeline, store: s, cache: c, tokens: tokens, limits: limits}, nil
}

// Start begins a backup run and streams NDJSON events until the run ends.
// Failures before the first byte of the stream are plain HTTP statuses;
// everything after that is an event on the stream.
func (h *BackupHandler) Start(c *gin.Context) {
	accountID := c.Param("account_id")
	ctx := c.Request.Context()

	running, err := h.cache.IsRunning(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backup state unavailable"})
		return
	}
	if running {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "a backup is already running for this account"})
		return
	}

	conn, err := h.store.Account().GetStorageConnection(ctx, accountID)
	if err != nil {
		var notFound *errors.DBNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no storage connection for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load storage connection"})
		return
	}
	if !conn.Verified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storage connection is not verified"})
		return
	}

	// Startup token precheck. A refresh failure here is a precondition
	// failure and must surface as a plain status, not as a stream event;
	// the pipeline re-acquires its own tokens per stage.
	if _, err := h.tokens.AccessToken(ctx, accountID); err != nil {
		slog.Error("backup_exporter.handler.token_precheck_failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not access storage on behalf of this account"})
		return
	}

	// The window slot is claimed last so a request refused above does not
	// burn the account's one run for the window.
	ok, err := h.cache.AcquireWindow(accountID, h.limits.RateWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backup state unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "backup rate limit exceeded, try again later"})
		return
	}

	if err := h.cache.MarkRunning(accountID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backup state unavailable"})
		return
	}
	defer func() {
		if err := h.cache.ClearRunning(accountID); err != nil {
			slog.Error("backup_exporter.handler.clear_running_failed", slog.String("error", err.Error()))
		}
	}()

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	em := exporter.NewEmitter(c.Writer)

	// The run outlives the request on purpose: a consumer dropping the
	// stream must not abort uploads already in flight.
	h.pipeline.Run(context.WithoutCancel(ctx), accountID, em)
}

// History lists past backup runs for the account.
func (h *BackupHandler) History(c *gin.Context) {
	accountID := c.Param("account_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	records, err := h.store.Backup().ListExportHistory(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load backup history"})
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"id":             r.ID,
			"runId":          r.RunID,
			"status":         r.Status,
			"errorCount":     r.ErrorCount,
			"manifestFileId": r.ManifestFileID,
			"startedAt":      r.StartedAt,
			"completedAt":    r.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
