package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
)

// Epoch is the first millisecond of 2015, the origin of snowflake timestamps.
const Epoch int64 = 1420070400000

// maxExactFloat is the largest integer a float64 holds without loss.
const maxExactFloat = 1 << 53

var (
	// ErrInvalidKey is returned when a raw value cannot be normalized into a key.
	ErrInvalidKey = platformerrors.New(platformerrors.CodeInvalidInput, "invalid key")

	// ErrPartialEntity is returned when an object without an assigned key is used as a key.
	ErrPartialEntity = platformerrors.New(platformerrors.CodeInternal, "partial entity has no key")
)

// Snowflake is the canonical key of a server-owned resource.
type Snowflake uint64

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Time returns the creation time embedded into the snowflake.
func (s Snowflake) Time() time.Time {
	return time.UnixMilli(int64(s>>22) + Epoch)
}

// MarshalText encodes the snowflake as a decimal string, the way the upstream API does.
func (s Snowflake) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Snowflake) UnmarshalText(text []byte) error {
	v, err := SnowflakeKey(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Keyed is anything exposing its own key. A false second value marks a partial object.
type Keyed[K comparable] interface {
	EntityKey() (K, bool)
}

// Normalizer turns every accepted raw key representation into the canonical key type.
type Normalizer[K comparable] func(raw any) (K, error)

// SnowflakeKey normalizes integers, decimal strings, json numbers and keyed objects.
func SnowflakeKey(raw any) (Snowflake, error) {
	switch v := raw.(type) {
	case Snowflake:
		return v, nil
	case uint64:
		return Snowflake(v), nil
	case uint:
		return Snowflake(v), nil
	case uint32:
		return Snowflake(v), nil
	case uint16:
		return Snowflake(v), nil
	case uint8:
		return Snowflake(v), nil
	case int:
		return fromSigned(int64(v))
	case int64:
		return fromSigned(v)
	case int32:
		return fromSigned(int64(v))
	case int16:
		return fromSigned(int64(v))
	case int8:
		return fromSigned(int64(v))
	case float64:
		if v < 0 || v > maxExactFloat || v != math.Trunc(v) {
			return 0, invalidKey(raw)
		}
		return Snowflake(v), nil
	case json.Number:
		return parseSnowflake(v.String(), raw)
	case string:
		return parseSnowflake(v, raw)
	case Keyed[Snowflake]:
		k, ok := v.EntityKey()
		if !ok {
			return 0, partial(raw)
		}
		return k, nil
	default:
		return 0, invalidKey(raw)
	}
}

// SnowflakeKeys normalizes a batch of raw keys, failing on the first invalid one.
func SnowflakeKeys(raws ...any) ([]Snowflake, error) {
	keys := make([]Snowflake, 0, len(raws))
	for _, raw := range raws {
		k, err := SnowflakeKey(raw)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// SnowflakeSet normalizes a single key or a slice of keys into a de-duplicated
// list, keeping the first occurrence order.
func SnowflakeSet(raw any) ([]Snowflake, error) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		k, err := SnowflakeKey(raw)
		if err != nil {
			return nil, err
		}
		return []Snowflake{k}, nil
	}

	seen := make(map[Snowflake]struct{}, rv.Len())
	keys := make([]Snowflake, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		k, err := SnowflakeKey(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// StringKey normalizes string-coded resources such as invite codes.
func StringKey(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		if v = strings.TrimSpace(v); v == "" {
			return "", invalidKey(raw)
		}
		return v, nil
	case Keyed[string]:
		k, ok := v.EntityKey()
		if !ok {
			return "", partial(raw)
		}
		return k, nil
	case fmt.Stringer:
		return StringKey(v.String())
	default:
		return "", invalidKey(raw)
	}
}

func fromSigned(v int64) (Snowflake, error) {
	if v < 0 {
		return 0, invalidKey(v)
	}
	return Snowflake(v), nil
}

func parseSnowflake(s string, raw any) (Snowflake, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, invalidKey(raw)
	}
	return Snowflake(v), nil
}

func invalidKey(raw any) error {
	return platformerrors.Wrapf(ErrInvalidKey, platformerrors.CodeInvalidInput, "cannot normalize %T(%v) into a key", raw, raw)
}

func partial(raw any) error {
	return platformerrors.Wrapf(ErrPartialEntity, platformerrors.CodeInternal, "%T is missing a proper key and therefore cannot be used as one", raw)
}
