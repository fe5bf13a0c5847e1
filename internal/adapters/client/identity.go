package client

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
)

// personDTO is the identity service's view of a player.
type personDTO struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
}

// IdentityClient resolves players through GET /v1/persons/{id}.
type IdentityClient struct {
	http *resty.Client
	log  logger.Logger
}

// NewIdentityClient creates a client for the identity service at baseURL.
// Lookups are retried on transport errors and 5xx responses.
func NewIdentityClient(baseURL string, opts ...Option) *IdentityClient {
	s := newSettings(opts)
	r := newResty(baseURL, s).
		SetRetryCount(s.retries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})
	c := &IdentityClient{http: r, log: s.log}
	if c.log == nil {
		c.log = logger.Get().Named("identity-client")
	}
	return c
}

// GetPlayerByID returns the player or ErrNotFound.
func (c *IdentityClient) GetPlayerByID(ctx context.Context, playerID string) (model.PlayerSummary, error) {
	var out personDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", playerID).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/v1/persons/{id}")
	if err != nil || resp.IsError() {
		err = classify("get person "+playerID, resp, err)
		c.log.Debug(ctx, "person lookup failed", logger.String("player_id", playerID), logger.Error(err))
		return model.PlayerSummary{}, err
	}
	if out.ID == "" {
		out.ID = playerID
	}
	return model.PlayerSummary{ID: out.ID, DisplayName: out.Nickname}, nil
}
