package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/Borislavv/go-ash-mirror/config"
	"github.com/Borislavv/go-ash-mirror/internal/shared/rate"
)

const maxErrorBody = 4 << 10

// Session executes calls against the upstream HTTP API.
// It validates every call before touching the network and paces requests with a throttle.
type Session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      config.RestCfg
	logger   *slog.Logger
	client   *http.Client
	throttle *rate.Throttle
	closed   atomic.Bool
}

// NewSession creates a session whose throttle lives until ctx is done or Close is called.
// A nil client means a client with cfg.Timeout.
func NewSession(ctx context.Context, cfg config.RestCfg, logger *slog.Logger, client *http.Client) *Session {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		client:   client,
		throttle: rate.NewThrottle(ctx, cfg.RequestsPerSec),
	}
}

func (s *Session) Do(ctx context.Context, call Call) (any, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if call.Route == nil {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "call without route")
	}
	if err := call.Route.Validate(call); err != nil {
		return nil, err
	}
	path, err := call.Route.Expand(call.Path)
	if err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, call, path)
	if err != nil {
		return nil, err
	}

	if err = s.throttle.Wait(ctx); err != nil {
		if s.closed.Load() {
			return nil, ErrSessionClosed
		}
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, platformerrors.WrapWithContext(
			fmt.Errorf("%w: %w", ErrNetwork, err),
			platformerrors.CodeNetwork,
			call.Route.Name+" request failed",
			map[string]interface{}{"route": call.Route.Name},
		)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Debug("request rejected", "route", call.Route.Name, "status", resp.StatusCode)
		err = statusError(call, resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			if after := resp.Header.Get("Retry-After"); after != "" {
				err = platformerrors.WithContext(err, "retry_after", after)
			}
		}
		return nil, err
	}

	return decodeBody(call, resp.Body)
}

// Close rejects every further call and stops the throttle. It is idempotent.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cancel()
		s.client.CloseIdleConnections()
		s.logger.Info("rest session closed")
	}
	return nil
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) newRequest(ctx context.Context, call Call, path string) (*http.Request, error) {
	var body io.Reader
	if call.JSON != nil {
		data, err := json.Marshal(call.JSON)
		if err != nil {
			return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "encode "+call.Route.Name+" body")
		}
		body = bytes.NewReader(data)
	}

	target := s.cfg.URL() + path
	if q := encodeQuery(call.Query); q != "" {
		target += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, call.Route.Method, target, body)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "build "+call.Route.Name+" request")
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", s.cfg.TokenType+" "+s.cfg.Token)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decodeBody(call Call, r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, platformerrors.Wrap(err, platformerrors.CodeSchemaFailed, "decode "+call.Route.Name+" response")
	}
	return v, nil
}
