package schema

import (
	"fmt"
	"sort"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
)

var (
	// ErrSchemaMismatch is returned when a wire value cannot be decoded by its field.
	ErrSchemaMismatch = platformerrors.New(platformerrors.CodeSchemaFailed, "schema mismatch")

	// ErrUnknownKeys is returned when a caller passes keys the schema or route does not accept.
	ErrUnknownKeys = platformerrors.New(platformerrors.CodeInvalidInput, "unknown keys")

	// ErrMissingKeys is returned when required keys are absent.
	ErrMissingKeys = platformerrors.New(platformerrors.CodeInvalidInput, "missing required keys")

	// ErrInvalidSchema is returned by Build for malformed field declarations.
	ErrInvalidSchema = platformerrors.New(platformerrors.CodeInvalidConfig, "invalid schema")

	// ErrIncompatibleOverride is returned by Build when a derived field shadows a parent
	// field with a different value kind.
	ErrIncompatibleOverride = platformerrors.New(platformerrors.CodeSchemaVersionIncompatible, "incompatible field override")
)

func mismatch(schema string, f fieldRef, cause error) error {
	return platformerrors.WrapWithContext(
		fmt.Errorf("%w: %w", ErrSchemaMismatch, cause),
		platformerrors.CodeSchemaFailed,
		fmt.Sprintf("decode %s.%s", schema, f.attr),
		map[string]interface{}{"schema": schema, "attr": f.attr, "wire_key": f.wireKey, "kind": f.kind},
	)
}

func encodeFailed(schema string, f fieldRef, cause error) error {
	return platformerrors.WrapWithContext(
		fmt.Errorf("%w: %w", ErrSchemaMismatch, cause),
		platformerrors.CodeSchemaFailed,
		fmt.Sprintf("encode %s.%s", schema, f.attr),
		map[string]interface{}{"schema": schema, "attr": f.attr, "wire_key": f.wireKey, "kind": f.kind},
	)
}

func invalidSchema(format string, args ...any) error {
	return platformerrors.Wrapf(ErrInvalidSchema, platformerrors.CodeInvalidConfig, format, args...)
}

func unknownKeys(op string, keys []string) error {
	sort.Strings(keys)
	return platformerrors.WrapWithContext(
		ErrUnknownKeys,
		platformerrors.CodeInvalidInput,
		fmt.Sprintf("%s got unexpected keys: %s", op, strings.Join(keys, ", ")),
		map[string]interface{}{"op": op, "keys": keys},
	)
}

func missingKeys(op string, keys []string) error {
	sort.Strings(keys)
	return platformerrors.WrapWithContext(
		ErrMissingKeys,
		platformerrors.CodeInvalidInput,
		fmt.Sprintf("%s is missing required keys: %s", op, strings.Join(keys, ", ")),
		map[string]interface{}{"op": op, "keys": keys},
	)
}
