// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/queue"
	"github.com/okian/arena/internal/domain/turn"
	"github.com/okian/arena/pkg/logger"
)

// QueueService is the queue surface the handlers use.
type QueueService interface {
	Join(ctx context.Context, playerID string) error
	Leave(ctx context.Context, playerID string) error
	Status(ctx context.Context, playerID string) (model.QueueStatus, error)
}

// GameService is the match surface the handlers use.
type GameService interface {
	CreateMatch(ctx context.Context, player1ID, player2ID string) (*model.Match, error)
	GetMatch(ctx context.Context, matchID string) (*model.Match, error)
	SubmitMove(ctx context.Context, req turn.MoveRequest) (model.MoveAck, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth          *Authenticator
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	queueHandler  *QueueHandler
	gameHandler   *GameHandler
	notifications http.Handler
	log           logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(queueSvc QueueService, gameSvc GameService, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		queueHandler:  NewQueueHandler(queueSvc),
		gameHandler:   NewGameHandler(gameSvc),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auth == nil {
		s.auth = NewAuthenticator("")
	}
	if s.log == nil {
		s.log = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/queue/join", MetricsMiddleware(s.auth.Middleware(s.queueHandler.HandleJoin), "queue_join"))
	mux.HandleFunc("POST /v1/queue/leave", MetricsMiddleware(s.auth.Middleware(s.queueHandler.HandleLeave), "queue_leave"))
	mux.HandleFunc("GET /v1/queue/status", MetricsMiddleware(s.auth.Middleware(s.queueHandler.HandleStatus), "queue_status"))

	mux.HandleFunc("POST /v1/game/match", MetricsMiddleware(s.gameHandler.HandleCreateMatch, "game_create_match"))
	mux.HandleFunc("POST /v1/game/move", MetricsMiddleware(s.auth.Middleware(s.gameHandler.HandleSubmitMove), "game_move"))
	mux.HandleFunc("GET /v1/game/{matchId}", MetricsMiddleware(s.gameHandler.HandleGetMatch, "game_get_match"))

	if s.notifications != nil {
		mux.HandleFunc("GET /v1/queue/ws", MetricsMiddleware(s.auth.Middleware(s.notifications.ServeHTTP), "queue_ws"))
	}
	s.log.Debug(ctx, "routes registered", logger.Bool("notifications", s.notifications != nil))
}

type messageResponse struct {
	Message  string `json:"message"`
	PersonID string `json:"personId,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps a domain failure onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		logger.Get().Named("api").Error(context.Background(), "request failed", logger.Error(err))
		writeError(w, status, code, errors.New("internal error"))
		return
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, turn.ErrMatchNotFound):
		return http.StatusNotFound, "match_not_found"
	case errors.Is(err, queue.ErrNotInQueue):
		return http.StatusNotFound, "not_in_queue"
	case errors.Is(err, turn.ErrPlayerNotParticipant):
		return http.StatusForbidden, "player_not_participant"
	case errors.Is(err, turn.ErrMatchFinished):
		return http.StatusBadRequest, "match_finished"
	case errors.Is(err, turn.ErrInvalidTurnNumber):
		return http.StatusBadRequest, "invalid_turn_number"
	case errors.Is(err, turn.ErrMoveAlreadyExists):
		return http.StatusBadRequest, "move_already_exists"
	case errors.Is(err, turn.ErrInvalidMoveTarget):
		return http.StatusBadRequest, "invalid_move_target"
	case errors.Is(err, turn.ErrInvalidPlayers), errors.Is(err, queue.ErrEmptyPlayerID), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
