// Package scmauth consumes the external SCM authentication component as
// an opaque capability check. The engine never interprets tokens itself.
package scmauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coverbay/coverbay/config"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/lumber"
)

type client struct {
	logger   lumber.Logger
	requests core.Requests
	endpoint string
	token    string
}

type checkRequest struct {
	Org   string `json:"org"`
	Repo  string `json:"repo"`
	Token string `json:"token,omitempty"`
}

// New returns the capability check client. An unconfigured endpoint
// yields an allow-all authorizer, the mode used behind a trusted proxy.
func New(cfg *config.EngineConfig, requests core.Requests, logger lumber.Logger) core.Authorizer {
	if cfg.Auth.Endpoint == "" {
		logger.Warnf("no auth endpoint configured, allowing all callers")
		return allowAll{}
	}
	return &client{
		logger:   logger,
		requests: requests,
		endpoint: cfg.Auth.Endpoint,
		token:    cfg.Auth.Token,
	}
}

func (c *client) Authorize(ctx context.Context, org, repo string) error {
	body, err := json.Marshal(checkRequest{Org: org, Repo: repo, Token: c.token})
	if err != nil {
		return err
	}
	if _, err := c.requests.MakeAPIRequest(ctx, http.MethodPost, c.endpoint, body); err != nil {
		if errors.Is(err, errs.ErrAPIStatus) {
			c.logger.Warnf("capability check denied %s/%s", org, repo)
			return errs.ErrUnauthorized
		}
		return err
	}
	return nil
}

type allowAll struct{}

func (allowAll) Authorize(ctx context.Context, org, repo string) error { return nil }
