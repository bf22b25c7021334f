package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
)

// Handler streams events to the caller until it disconnects or the hub
// stops. ?run_id= narrows the stream to one run.
func Handler(hub *Hub, cfg Config) gin.HandlerFunc {
	cfg.ApplyDefaults()
	return func(c *gin.Context) {
		topic := AllRuns
		if runID := c.Query("run_id"); runID != "" {
			if strings.ContainsAny(runID, `*?[]\`) {
				abort(c, errors.InvalidInput("run_id", "must be a run id, not a pattern"))
				return
			}
			topic = RunTopic(runID)
		}
		if cfg.MaxClients > 0 && hub.ClientCount() >= cfg.MaxClients {
			abort(c, errors.RateLimited("event stream"))
			return
		}
		Serve(hub, c.Writer, c.Request, NewClient(uuid.NewString(), topic, cfg.ClientBuffer), cfg.KeepAlive)
	}
}

func abort(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}

// Serve writes the stream for client on w.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, client *Client, keepAlive time.Duration) {
	rc := http.NewResponseController(w)
	// Streams outlive the server's WriteTimeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		hub.log.Debug("event stream keeps the write deadline", logger.Fields("client_id", client.id, logger.FieldError, err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	hello, _ := json.Marshal(ConnectedData{ClientID: client.id, Topic: client.topic})
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventConnected, hello)
	if err := rc.Flush(); err != nil {
		hub.log.Warn("event stream cannot flush", logger.Fields("client_id", client.id, logger.FieldError, err.Error()))
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-client.Events():
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			_ = rc.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			_ = rc.Flush()
		}
	}
}
