package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Borislavv/go-ash-mirror/model"
)

// Codec converts one attribute between its wire and in-process representation.
// Decode and Encode must be inverses up to representational normalization.
type Codec[V any] struct {
	// Kind tags the in-process value type. Overrides must keep the parent's Kind.
	Kind   string
	Decode func(raw any) (V, error)
	Encode func(v V) (any, error)
}

var (
	String = Codec[string]{
		Kind: "string",
		Decode: func(raw any) (string, error) {
			s, ok := raw.(string)
			if !ok {
				return "", unexpected("string", raw)
			}
			return s, nil
		},
		Encode: func(v string) (any, error) { return v, nil },
	}

	Bool = Codec[bool]{
		Kind: "bool",
		Decode: func(raw any) (bool, error) {
			b, ok := raw.(bool)
			if !ok {
				return false, unexpected("bool", raw)
			}
			return b, nil
		},
		Encode: func(v bool) (any, error) { return v, nil },
	}

	Int = Codec[int]{
		Kind: "int",
		Decode: func(raw any) (int, error) {
			n, err := toInt64(raw)
			return int(n), err
		},
		Encode: func(v int) (any, error) { return v, nil },
	}

	Float = Codec[float64]{
		Kind:   "float",
		Decode: toFloat64,
		Encode: func(v float64) (any, error) { return v, nil },
	}

	// Time decodes RFC 3339 timestamps; encoding normalizes to RFC 3339 with nanoseconds.
	Time = Codec[time.Time]{
		Kind: "time",
		Decode: func(raw any) (time.Time, error) {
			s, ok := raw.(string)
			if !ok {
				return time.Time{}, unexpected("timestamp string", raw)
			}
			return time.Parse(time.RFC3339Nano, s)
		},
		Encode: func(v time.Time) (any, error) { return v.Format(time.RFC3339Nano), nil },
	}

	// Key decodes snowflakes from decimal strings or numbers and encodes them as decimal strings.
	Key = FromNormalizer("key", model.SnowflakeKey, func(k model.Snowflake) any { return k.String() })

	// Any passes raw wire values through untouched.
	Any = Codec[any]{
		Kind:   "any",
		Decode: func(raw any) (any, error) { return raw, nil },
		Encode: func(v any) (any, error) { return v, nil },
	}
)

// FromNormalizer builds a key codec from a key normalizer.
func FromNormalizer[K comparable](kind string, norm model.Normalizer[K], encode func(K) any) Codec[K] {
	return Codec[K]{
		Kind:   kind,
		Decode: func(raw any) (K, error) { return norm(raw) },
		Encode: func(v K) (any, error) { return encode(v), nil },
	}
}

// StringEnum accepts only the listed values (any string when none are listed).
func StringEnum[E ~string](kind string, values ...E) Codec[E] {
	return Codec[E]{
		Kind: kind,
		Decode: func(raw any) (E, error) {
			s, ok := raw.(string)
			if !ok {
				return "", unexpected(kind, raw)
			}
			if len(values) > 0 && !slices.Contains(values, E(s)) {
				return "", fmt.Errorf("%q is not a valid %s", s, kind)
			}
			return E(s), nil
		},
		Encode: func(v E) (any, error) { return string(v), nil },
	}
}

// IntEnum accepts only the listed values (any integer when none are listed).
func IntEnum[E ~int](kind string, values ...E) Codec[E] {
	return Codec[E]{
		Kind: kind,
		Decode: func(raw any) (E, error) {
			n, err := toInt64(raw)
			if err != nil {
				return 0, err
			}
			if len(values) > 0 && !slices.Contains(values, E(n)) {
				return 0, fmt.Errorf("%d is not a valid %s", n, kind)
			}
			return E(n), nil
		},
		Encode: func(v E) (any, error) { return int(v), nil },
	}
}

// Array applies elem to every element of a wire array.
func Array[V any](elem Codec[V]) Codec[[]V] {
	return Codec[[]V]{
		Kind: "array<" + elem.Kind + ">",
		Decode: func(raw any) ([]V, error) {
			items, ok := raw.([]any)
			if !ok {
				return nil, unexpected("array", raw)
			}
			out := make([]V, 0, len(items))
			for i, item := range items {
				v, err := elem.Decode(item)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, v)
			}
			return out, nil
		},
		Encode: func(v []V) (any, error) {
			out := make([]any, 0, len(v))
			for i, item := range v {
				raw, err := elem.Encode(item)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, raw)
			}
			return out, nil
		},
	}
}

// Object delegates to a nested schema. The nested schema must have a constructor.
func Object[N any](s *Schema[N]) Codec[N] {
	return Codec[N]{
		Kind: "object<" + s.Name() + ">",
		Decode: func(raw any) (N, error) {
			var zero N
			rec, ok := asRecord(raw)
			if !ok {
				return zero, unexpected("object", raw)
			}
			return s.Unmarshal(rec, nil)
		},
		Encode: func(v N) (any, error) {
			rec, err := s.Marshal(v)
			if err != nil {
				return nil, err
			}
			return map[string]any(rec), nil
		},
	}
}

func asRecord(raw any) (Record, bool) {
	switch v := raw.(type) {
	case Record:
		return v, true
	case map[string]any:
		return v, true
	default:
		return nil, false
	}
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Int64()
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	default:
		return 0, unexpected("integer", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, unexpected("number", raw)
	}
}

func unexpected(want string, raw any) error {
	return fmt.Errorf("expected %s, got %T", want, raw)
}
