package requestutils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/testutils"
)

func noRetries() backoff.BackOff { return &backoff.StopBackOff{} }

func constantRetries(max uint64) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), max)
	}
}

func TestMakeAPIRequest_ReturnsBody(t *testing.T) {
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	r := New(logger, 5*time.Second, noRetries)
	body, err := r.MakeAPIRequest(context.TODO(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestMakeAPIRequest_RetriesServerErrors(t *testing.T) {
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	r := New(logger, 5*time.Second, constantRetries(5))
	body, err := r.MakeAPIRequest(context.TODO(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestMakeAPIRequest_ClientErrorsAreNotRetried(t *testing.T) {
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := New(logger, 5*time.Second, constantRetries(5))
	_, err = r.MakeAPIRequest(context.TODO(), http.MethodPost, srv.URL, []byte(`{}`))
	require.True(t, errors.Is(err, errs.ErrAPIStatus))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestMakeAPIRequest_ExhaustedRetriesSurfaceStatusError(t *testing.T) {
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := New(logger, 5*time.Second, constantRetries(2))
	_, err = r.MakeAPIRequest(context.TODO(), http.MethodGet, srv.URL, nil)
	require.True(t, errors.Is(err, errs.ErrAPIStatus))
}

// Concurrent requests each get their own backoff from the factory, so a
// persistently failing endpoint exhausts every caller's retry budget and
// no caller mutates another's retry state.
func TestMakeAPIRequest_ConcurrentCallsExhaustIndependently(t *testing.T) {
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	const callers = 4
	const retriesPerCall = 2
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(logger, 5*time.Second, constantRetries(retriesPerCall))
	var wg sync.WaitGroup
	errC := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.MakeAPIRequest(context.TODO(), http.MethodGet, srv.URL, nil)
			errC <- err
		}()
	}
	wg.Wait()
	close(errC)

	for err := range errC {
		require.True(t, errors.Is(err, errs.ErrAPIStatus))
	}
	assert.EqualValues(t, callers*(retriesPerCall+1), atomic.LoadInt32(&calls))
}
