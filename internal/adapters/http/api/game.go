package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/arena/internal/domain/turn"
)

type createMatchRequest struct {
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
}

// moveRequest mirrors the body of POST /v1/game/move. turnNumber is a
// pointer so a missing field is told apart from zero.
type moveRequest struct {
	MatchID       string `json:"matchId"`
	AttackTarget  string `json:"attackTarget"`
	DefenseTarget string `json:"defenseTarget"`
	TurnNumber    *int   `json:"turnNumber"`
}

func (m moveRequest) validate() error {
	switch {
	case strings.TrimSpace(m.MatchID) == "":
		return errors.New("missing matchId")
	case m.AttackTarget == "":
		return errors.New("missing attackTarget")
	case m.DefenseTarget == "":
		return errors.New("missing defenseTarget")
	case m.TurnNumber == nil:
		return errors.New("missing turnNumber")
	}
	return nil
}

// GameHandler handles match endpoints.
type GameHandler struct {
	svc GameService
}

// NewGameHandler creates a new game handler.
func NewGameHandler(svc GameService) *GameHandler {
	return &GameHandler{svc: svc}
}

// HandleCreateMatch handles POST /v1/game/match.
func (h *GameHandler) HandleCreateMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_match"
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.svc.CreateMatch(r.Context(), req.Player1ID, req.Player2ID)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleGetMatch handles GET /v1/game/{matchId}.
func (h *GameHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	m, err := h.svc.GetMatch(r.Context(), r.PathValue("matchId"))
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleSubmitMove handles POST /v1/game/move for the authenticated player.
func (h *GameHandler) HandleSubmitMove(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_move"
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	playerID, _ := PlayerIDFromContext(r.Context())
	ack, err := h.svc.SubmitMove(r.Context(), turn.MoveRequest{
		MatchID:       req.MatchID,
		PlayerID:      playerID,
		AttackTarget:  req.AttackTarget,
		DefenseTarget: req.DefenseTarget,
		TurnNumber:    *req.TurnNumber,
	})
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
