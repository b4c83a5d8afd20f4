package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luxury-yacht/driftcheck/backend/batch"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

const watchLogSource = "JobWatch"

// Watch event types.
const (
	WatchEventState = "state"
	WatchEventError = "error"
)

// WatchEvent is one message on a job watch stream. Job never carries the full result;
// Summary is set once the job has one.
type WatchEvent struct {
	Type    string         `json:"type"`
	Job     *batch.Job     `json:"job,omitempty"`
	Summary *batch.Summary `json:"summary,omitempty"`
	Message string         `json:"message,omitempty"`
}

type watchHandler struct {
	queue        JobQueue
	logger       logging.Interface
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

func newWatchHandler(queue JobQueue, logger logging.Interface) *watchHandler {
	return &watchHandler{
		queue:        queue,
		logger:       logger,
		pollInterval: config.WatchPollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   config.WatchReadBufferSize,
			WriteBufferSize:  config.WatchWriteBufferSize,
			HandshakeTimeout: config.WatchHandshakeTimeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// serve streams state changes of jobID until the job finishes or the client leaves.
func (h *watchHandler) serve(w http.ResponseWriter, r *http.Request, jobID string) {
	correlationID := getCorrelationID(r)
	if r.Method != http.MethodGet {
		setCorrelationID(w, correlationID)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if jobID == "" {
		writeError(w, http.StatusBadRequest, errJobIDNotSpecified, correlationID)
		return
	}
	if _, ok := h.queue.Status(jobID); !ok {
		setCorrelationID(w, correlationID)
		http.NotFound(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, http.Header{CorrelationIDHeader: []string{correlationID}})
	if err != nil {
		h.logger.Warn(fmt.Sprintf("job watch upgrade failed: %v", err), watchLogSource)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readLoop(conn, cancel)

	if err := h.stream(ctx, conn, jobID); err != nil && !isExpectedCloseError(err) {
		h.logger.Warn(fmt.Sprintf("job watch for %s ended: %v", jobID, err), watchLogSource)
	}
}

func (h *watchHandler) stream(ctx context.Context, conn *websocket.Conn, jobID string) error {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var last batch.JobState
	for {
		job, ok := h.queue.Status(jobID)
		if !ok {
			_ = h.write(conn, WatchEvent{Type: WatchEventError, Message: "job no longer exists"})
			return h.close(conn, websocket.CloseGoingAway, "job removed")
		}
		if job.State != last {
			last = job.State
			if err := h.write(conn, stateEvent(job)); err != nil {
				return err
			}
		}
		if job.State.Finished() {
			return h.close(conn, websocket.CloseNormalClosure, string(job.State))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// readLoop drains client frames so close frames are processed, and cancels the
// stream once the client goes away.
func (h *watchHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *watchHandler) write(conn *websocket.Conn, event WatchEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(config.WatchWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}

func (h *watchHandler) close(conn *websocket.Conn, code int, reason string) error {
	return conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(config.WatchWriteTimeout))
}

func stateEvent(job *batch.Job) WatchEvent {
	event := WatchEvent{Type: WatchEventState, Job: job}
	if job.Result != nil {
		summary := job.Result.Summary
		event.Summary = &summary
		job.Result = nil
	}
	return event
}

func isExpectedCloseError(err error) bool {
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	return websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
