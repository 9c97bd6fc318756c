package rest

import (
	"fmt"
	"net/http"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/Borislavv/go-ash-mirror/schema"
)

var (
	ErrNotFound     = platformerrors.New(platformerrors.CodeNotFound, "resource not found")
	ErrUnauthorized = platformerrors.New(platformerrors.CodeUnauthorized, "unauthorized")
	ErrForbidden    = platformerrors.New(platformerrors.CodeForbidden, "forbidden")
	ErrRateLimited  = platformerrors.New(platformerrors.CodeRateLimit, "rate limited")
	ErrUnavailable  = platformerrors.New(platformerrors.CodeUnavailable, "upstream unavailable")
	ErrBadRequest   = platformerrors.New(platformerrors.CodeInvalidInput, "request rejected")
	ErrNetwork      = platformerrors.New(platformerrors.CodeNetwork, "network failure")

	// ErrSessionClosed is returned by every call issued after Close.
	ErrSessionClosed = platformerrors.WithClassification(
		platformerrors.New(platformerrors.CodeUnavailable, "session closed"),
		platformerrors.ClassificationPermanent,
	)

	// ErrUnexpectedResponse is returned when a response does not have the expected JSON shape.
	ErrUnexpectedResponse = platformerrors.New(platformerrors.CodeSchemaFailed, "unexpected response shape")
)

func statusError(call Call, status int, body string) error {
	var (
		base error
		code platformerrors.ErrorCode
	)
	switch {
	case status == http.StatusNotFound:
		base, code = ErrNotFound, platformerrors.CodeNotFound
	case status == http.StatusUnauthorized:
		base, code = ErrUnauthorized, platformerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		base, code = ErrForbidden, platformerrors.CodeForbidden
	case status == http.StatusTooManyRequests:
		base, code = ErrRateLimited, platformerrors.CodeRateLimit
	case status >= http.StatusInternalServerError:
		base, code = ErrUnavailable, platformerrors.CodeUnavailable
	default:
		base, code = ErrBadRequest, platformerrors.CodeInvalidInput
	}
	return platformerrors.WrapWithContext(base, code,
		fmt.Sprintf("%s returned %d", call.Route.Name, status),
		map[string]interface{}{"route": call.Route.Name, "status": status, "body": body},
	)
}

// Record asserts a decoded response is a JSON object.
func Record(v any) (schema.Record, error) {
	switch t := v.(type) {
	case schema.Record:
		return t, nil
	case map[string]any:
		return schema.Record(t), nil
	}
	return nil, platformerrors.Wrapf(ErrUnexpectedResponse, platformerrors.CodeSchemaFailed, "expected object, got %T", v)
}

// Records asserts a decoded response is a JSON array of objects.
func Records(v any) ([]schema.Record, error) {
	arr, ok := v.([]any)
	if !ok {
		if recs, ok := v.([]schema.Record); ok {
			return recs, nil
		}
		return nil, platformerrors.Wrapf(ErrUnexpectedResponse, platformerrors.CodeSchemaFailed, "expected array, got %T", v)
	}
	out := make([]schema.Record, 0, len(arr))
	for i, item := range arr {
		rec, err := Record(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
