package api

import (
	"net/http"
)

// QueueHandler handles the waiting queue endpoints. The player is always the
// authenticated caller.
type QueueHandler struct {
	svc QueueService
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(svc QueueService) *QueueHandler {
	return &QueueHandler{svc: svc}
}

// HandleJoin handles POST /v1/queue/join.
func (h *QueueHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.queue_join"
	playerID, _ := PlayerIDFromContext(r.Context())
	if err := h.svc.Join(r.Context(), playerID); err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "waiting", PersonID: playerID})
}

// HandleLeave handles POST /v1/queue/leave.
func (h *QueueHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	const op = "api.queue_leave"
	playerID, _ := PlayerIDFromContext(r.Context())
	if err := h.svc.Leave(r.Context(), playerID); err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "left"})
}

// HandleStatus handles GET /v1/queue/status.
func (h *QueueHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.queue_status"
	playerID, _ := PlayerIDFromContext(r.Context())
	st, err := h.svc.Status(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
