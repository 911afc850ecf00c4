package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"proxybot/internal/broadcast"
	"proxybot/internal/storage"
	logx "proxybot/pkg/logx"
)

const (
	defaultProxyCount = 10
	maxProxyCount     = 50
)

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           ServiceName,
		"bot_running":       s.d.BotRunning(),
		"scheduler_running": s.d.Scheduler.Running(),
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) status(c *gin.Context) {
	var next any
	if t, ok := s.d.Scheduler.Next(); ok {
		next = t.UTC().Format(time.RFC3339)
	}
	var last any
	if r, ok := s.d.Broadcast.Last(); ok {
		last = r
	}
	c.JSON(http.StatusOK, gin.H{
		"running":        s.d.BotRunning(),
		"scheduler":      s.d.Scheduler.Running(),
		"next_run":       next,
		"last_broadcast": last,
	})
}

// parseCount reads ?count=, defaulting to 10 and clamping to [0, 50].
func parseCount(raw string) (int, error) {
	if raw == "" {
		return defaultProxyCount, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return min(max(n, 0), maxProxyCount), nil
}

func (s *Server) proxies(c *gin.Context) {
	n, err := parseCount(c.Query("count"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be an integer"})
		return
	}
	list := s.d.Links.FetchProxies(c.Request.Context(), n)
	if list == nil {
		list = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"proxies": list, "count": len(list)})
}

func (s *Server) sendUpdate(c *gin.Context) {
	ctx := broadcast.WithTrigger(c.Request.Context(), "api")
	res := s.d.Broadcast.SendUpdates(ctx)

	entry := storage.AuditEntry{
		At:            time.Now().UTC(),
		ActorUsername: "http:" + c.ClientIP(),
		Action:        "broadcast.manual",
		Target:        "groups",
		OK:            !res.AllFailed(),
		Error:         res.Err,
	}
	if err := s.d.Audit.AppendAudit(ctx, entry); err != nil && !errors.Is(err, storage.ErrDisabled) {
		s.log.Warn("audit append failed", logx.Err(err))
	}

	if res.AllFailed() {
		msg := res.Err
		if msg == "" {
			msg = "failed to send update to every group"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "sent": res.Sent, "failed": res.Failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Update sent successfully", "sent": res.Sent, "failed": res.Failed})
}
