// Package rest describes the outbound requests of the mirror and executes them over HTTP.
package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/Borislavv/go-ash-mirror/schema"
)

// Route is a declarative outbound request shape.
// Path placeholders are written as {name} and filled from Call.Path.
type Route struct {
	Name   string
	Method string
	Path   string

	// JSON lists the body keys the route accepts.
	JSON []string
	// Query lists the query parameters the route accepts.
	Query []string
}

// Call is one invocation of a Route.
type Call struct {
	Route *Route
	Path  map[string]any
	Query map[string]any
	JSON  map[string]any
}

// Requester executes calls. The decoded JSON response is returned as-is
// (objects as map[string]any, numbers as json.Number); an empty body yields nil.
type Requester interface {
	Do(ctx context.Context, call Call) (any, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, call Call) (any, error)

func (f RequesterFunc) Do(ctx context.Context, call Call) (any, error) {
	return f(ctx, call)
}

// Validate checks body and query keys against the route.
func (r *Route) Validate(call Call) error {
	if err := schema.ValidateKeys(r.Name, call.JSON, nil, r.JSON); err != nil {
		return err
	}
	return schema.ValidateKeys(r.Name, call.Query, nil, r.Query)
}

// Expand fills the path placeholders. Every placeholder must be provided.
func (r *Route) Expand(params map[string]any) (string, error) {
	var (
		b       strings.Builder
		missing []string
		rest    = r.Path
	)
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", platformerrors.Newf(platformerrors.CodeInvalidConfig, "route %s has an unterminated placeholder", r.Name)
		}
		name := rest[open+1 : open+end]
		b.WriteString(rest[:open])

		v, ok := params[name]
		if !ok || v == nil {
			missing = append(missing, name)
		} else {
			b.WriteString(url.PathEscape(formatValue(v)))
		}
		rest = rest[open+end+1:]
	}
	if len(missing) > 0 {
		return "", schema.ValidateKeys(r.Name, map[string]any{}, missing, nil)
	}
	return b.String(), nil
}

func (c Call) String() string {
	if c.Route == nil {
		return "<nil route>"
	}
	return c.Route.Method + " " + c.Route.Path
}

func encodeQuery(q map[string]any) string {
	if len(q) == 0 {
		return ""
	}
	values := make(url.Values, len(q))
	for k, v := range q {
		if v == nil {
			continue
		}
		values.Set(k, formatValue(v))
	}
	return values.Encode()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(v)
	}
}
