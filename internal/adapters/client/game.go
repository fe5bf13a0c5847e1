package client

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
)

type createMatchRequest struct {
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
}

// GameClient creates matches on a remote game service through
// POST /v1/game/match. Creation is never retried here; the next
// matchmaking tick is the retry.
type GameClient struct {
	http *resty.Client
	log  logger.Logger
}

// NewGameClient creates a client for the game service at baseURL.
func NewGameClient(baseURL string, opts ...Option) *GameClient {
	s := newSettings(opts)
	c := &GameClient{http: newResty(baseURL, s), log: s.log}
	if c.log == nil {
		c.log = logger.Get().Named("game-client")
	}
	return c
}

// CreateMatch implements the match creation contract of the matchmaker.
func (c *GameClient) CreateMatch(ctx context.Context, player1ID, player2ID string) (*model.Match, error) {
	var out model.Match
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createMatchRequest{Player1ID: player1ID, Player2ID: player2ID}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/v1/game/match")
	if err != nil || resp.IsError() {
		return nil, classify("create match", resp, err)
	}
	if out.ID == "" {
		return nil, ErrEmptyResponse
	}
	c.log.Debug(ctx, "remote match created", logger.String("match_id", out.ID))
	return &out, nil
}
