// Package schema converts wire records into typed values and back.
//
// A Schema is an ordered, immutable list of fields resolved once at build time.
// Composition is explicit: a derived schema inherits parent fields through a
// projection from the derived type onto the parent type, and its own fields
// shadow parent fields with the same attribute name.
package schema

import (
	"slices"

	platformerrors "github.com/jmgilman/go/errors"
)

// Schema describes how records map onto values of T (usually a struct pointer).
type Schema[T any] struct {
	name    string
	newFn   func() T
	fields  []*Field[T]
	byAttr  map[string]*Field[T]
	byWire  map[string]*Field[T]
	lineage []string
}

// Parent is a schema lifted onto a derived type, ready to be extended.
type Parent[T any] struct {
	name    string
	fields  []*Field[T]
	lineage []string
	broken  bool
}

// Inherit lifts every field of parent onto T. project must return the embedded
// parent value of a T and must never return nil for a constructed T.
func Inherit[T, P any](parent *Schema[P], project func(T) P) Parent[T] {
	if parent == nil || project == nil {
		return Parent[T]{broken: true}
	}
	fields := make([]*Field[T], 0, len(parent.fields))
	for _, pf := range parent.fields {
		fields = append(fields, lift(pf, project))
	}
	return Parent[T]{name: parent.name, fields: fields, lineage: parent.Lineage()}
}

// Build resolves the field set: own fields first, then parents left to right,
// skipping attributes that are already defined. The first declared parent wins
// over later ones; the derived schema wins over all parents.
func Build[T any](name string, newFn func() T, parents []Parent[T], fields ...*Field[T]) (*Schema[T], error) {
	s := &Schema[T]{
		name:   name,
		newFn:  newFn,
		fields: make([]*Field[T], 0, len(fields)),
		byAttr: make(map[string]*Field[T]),
		byWire: make(map[string]*Field[T]),
	}

	own := make(map[string]*Field[T], len(fields))
	for _, f := range fields {
		if f == nil {
			return nil, invalidSchema("%s: nil field", name)
		}
		if f.broken != "" {
			return nil, invalidSchema("%s.%s: %s", name, f.attr, f.broken)
		}
		if _, dup := own[f.attr]; dup {
			return nil, invalidSchema("%s: attribute %q declared twice", name, f.attr)
		}
		own[f.attr] = f
		s.add(f)
	}

	for i, p := range parents {
		if p.broken {
			return nil, invalidSchema("%s: parent #%d has no schema or projection", name, i)
		}
		for _, pf := range p.fields {
			if pf.broken != "" {
				return nil, invalidSchema("%s.%s: %s", p.name, pf.attr, pf.broken)
			}
			if prev, shadowed := s.byAttr[pf.attr]; shadowed {
				if prev.kind != pf.kind {
					return nil, platformerrors.WrapWithContext(
						ErrIncompatibleOverride,
						platformerrors.CodeSchemaVersionIncompatible,
						name+"."+pf.attr+" shadows "+p.name+"."+pf.attr+" with a different kind",
						map[string]interface{}{"attr": pf.attr, "kind": prev.kind, "parent_kind": pf.kind},
					)
				}
				continue
			}
			s.add(pf)
		}
		s.lineage = append(s.lineage, p.lineage...)
	}

	for _, f := range s.fields {
		if other, dup := s.byWire[f.wireKey]; dup && other != f {
			return nil, invalidSchema("%s: wire key %q is mapped by both %q and %q", name, f.wireKey, other.attr, f.attr)
		}
		s.byWire[f.wireKey] = f
	}
	return s, nil
}

// MustBuild is Build for package-level schema declarations.
func MustBuild[T any](name string, newFn func() T, parents []Parent[T], fields ...*Field[T]) *Schema[T] {
	s, err := Build(name, newFn, parents, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema[T]) add(f *Field[T]) {
	s.fields = append(s.fields, f)
	s.byAttr[f.attr] = f
}

func (s *Schema[T]) Name() string { return s.name }

// Lineage lists the schema name followed by every inherited schema name.
func (s *Schema[T]) Lineage() []string {
	return append([]string{s.name}, s.lineage...)
}

// Extends reports whether name is this schema or one of its ancestors.
func (s *Schema[T]) Extends(name string) bool {
	return slices.Contains(s.Lineage(), name)
}

// Fields returns the resolved fields, most derived first.
func (s *Schema[T]) Fields() []*Field[T] {
	return slices.Clone(s.fields)
}

func (s *Schema[T]) Field(attr string) (*Field[T], bool) {
	f, ok := s.byAttr[attr]
	return f, ok
}

func (s *Schema[T]) WireKeys() []string {
	keys := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		keys = append(keys, f.wireKey)
	}
	return keys
}

// New constructs an empty value with the schema's constructor.
func (s *Schema[T]) New() (T, error) {
	if s.newFn == nil {
		var zero T
		return zero, invalidSchema("%s has no constructor", s.name)
	}
	return s.newFn(), nil
}

// Unmarshal decodes rec into a value built by ctor (or the schema constructor when
// ctor is nil). Absent keys take their default when one is declared. Nothing is
// constructed when any field fails to decode.
func (s *Schema[T]) Unmarshal(rec Record, ctor func() T) (T, error) {
	var zero T
	if ctor == nil {
		ctor = s.newFn
	}
	if ctor == nil {
		return zero, invalidSchema("%s has no constructor", s.name)
	}
	applies, err := s.stage(rec, true)
	if err != nil {
		return zero, err
	}
	t := ctor()
	for _, apply := range applies {
		apply(t)
	}
	return t, nil
}

// Update applies rec onto an existing value. Absent keys are left untouched and
// defaults are not re-applied. On error t is not modified.
func (s *Schema[T]) Update(t T, rec Record) error {
	applies, err := s.stage(rec, false)
	if err != nil {
		return err
	}
	for _, apply := range applies {
		apply(t)
	}
	return nil
}

// Marshal encodes t into a record. When attrs are given only those attributes are
// encoded. Unset attributes are skipped.
func (s *Schema[T]) Marshal(t T, attrs ...string) (Record, error) {
	fields := s.fields
	if len(attrs) > 0 {
		fields = make([]*Field[T], 0, len(attrs))
		var unknown []string
		for _, attr := range attrs {
			f, ok := s.byAttr[attr]
			if !ok {
				unknown = append(unknown, attr)
				continue
			}
			fields = append(fields, f)
		}
		if len(unknown) > 0 {
			return nil, unknownKeys(s.name+".Marshal", unknown)
		}
	}

	rec := make(Record, len(fields))
	for _, f := range fields {
		raw, set, err := f.read(t)
		if err != nil {
			return nil, encodeFailed(s.name, f.fieldRef, err)
		}
		if !set {
			continue
		}
		rec[f.wireKey] = raw
	}
	return rec, nil
}

// Validate checks that rec only carries wire keys this schema knows and that every
// required wire key is present.
func (s *Schema[T]) Validate(op string, rec Record, required ...string) error {
	return ValidateKeys(op, rec, required, s.WireKeys())
}

func (s *Schema[T]) stage(rec Record, withDefaults bool) ([]func(T), error) {
	applies := make([]func(T), 0, len(s.fields))
	for _, f := range s.fields {
		raw, present := rec[f.wireKey]
		if !present {
			if withDefaults && f.def != nil {
				applies = append(applies, f.def)
			}
			continue
		}
		apply, err := f.stage(raw)
		if err != nil {
			return nil, mismatch(s.name, f.fieldRef, err)
		}
		applies = append(applies, apply)
	}
	return applies, nil
}
