package requestutils

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/lumber"
)

type requests struct {
	logger     lumber.Logger
	client     http.Client
	newBackOff func() backoff.BackOff
}

// New returns a wrapper around the http client for outbound API calls.
// Transient failures are retried per the policy the factory yields; the
// factory is invoked once per request so concurrent calls never share
// retry state. Return backoff.StopBackOff to disable retries.
func New(logger lumber.Logger, timeout time.Duration, newBackOff func() backoff.BackOff) core.Requests {
	return &requests{
		logger:     logger,
		client:     http.Client{Timeout: timeout},
		newBackOff: newBackOff,
	}
}

func (r *requests) MakeAPIRequest(ctx context.Context, httpMethod, endpoint string, body []byte) ([]byte, error) {
	var respBody []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, bytes.NewBuffer(body))
		if err != nil {
			r.logger.Errorf("error while creating http request %v", err)
			return backoff.Permanent(err)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			r.logger.Errorf("error while sending http request %v", err)
			return err
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			r.logger.Errorf("error while reading http response body %v", err)
			return err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			r.logger.Errorf("server error status %d from %s", resp.StatusCode, endpoint)
			return errs.ErrAPIStatus
		}
		if resp.StatusCode != http.StatusOK {
			r.logger.Errorf("non 200 status code %s", string(respBody))
			return backoff.Permanent(errs.ErrAPIStatus)
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(r.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}
