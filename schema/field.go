package schema

type fieldRef struct {
	attr    string
	wireKey string
	kind    string
}

// Field maps one wire key onto one attribute of T.
type Field[T any] struct {
	fieldRef
	stage  func(raw any) (func(T), error)
	read   func(T) (raw any, set bool, err error)
	def    func(T)
	broken string
}

type fieldOptions[V any] struct {
	def    V
	hasDef bool
}

// FieldOption configures a Field at declaration time.
type FieldOption[V any] func(*fieldOptions[V])

// Default assigns v on Unmarshal when the wire key is absent. Update never applies defaults.
func Default[V any](v V) FieldOption[V] {
	return func(o *fieldOptions[V]) {
		o.def, o.hasDef = v, true
	}
}

// F declares a field: wireKey is decoded with codec and stored in the slot of attr.
// A present null un-sets the attribute.
func F[T, V any](attr, wireKey string, slot func(T) *Value[V], codec Codec[V], opts ...FieldOption[V]) *Field[T] {
	f := &Field[T]{fieldRef: fieldRef{attr: attr, wireKey: wireKey, kind: codec.Kind}}
	switch {
	case attr == "" || wireKey == "":
		f.broken = "empty attribute or wire key"
		return f
	case slot == nil:
		f.broken = "nil slot"
		return f
	case codec.Decode == nil || codec.Encode == nil:
		f.broken = "incomplete codec"
		return f
	}

	var o fieldOptions[V]
	for _, opt := range opts {
		opt(&o)
	}

	f.stage = func(raw any) (func(T), error) {
		if raw == nil {
			return func(t T) { slot(t).Unset() }, nil
		}
		v, err := codec.Decode(raw)
		if err != nil {
			return nil, err
		}
		return func(t T) { slot(t).Set(v) }, nil
	}
	f.read = func(t T) (any, bool, error) {
		v, ok := slot(t).Get()
		if !ok {
			return nil, false, nil
		}
		raw, err := codec.Encode(v)
		return raw, true, err
	}
	if o.hasDef {
		def := o.def
		f.def = func(t T) { slot(t).Set(def) }
	}
	return f
}

func (f *Field[T]) Attr() string     { return f.attr }
func (f *Field[T]) WireKey() string  { return f.wireKey }
func (f *Field[T]) Kind() string     { return f.kind }
func (f *Field[T]) HasDefault() bool { return f.def != nil }

// lift re-targets a parent field onto a derived type through project.
func lift[T, P any](pf *Field[P], project func(T) P) *Field[T] {
	f := &Field[T]{fieldRef: pf.fieldRef, broken: pf.broken}
	if pf.broken != "" {
		return f
	}
	f.stage = func(raw any) (func(T), error) {
		apply, err := pf.stage(raw)
		if err != nil {
			return nil, err
		}
		return func(t T) { apply(project(t)) }, nil
	}
	f.read = func(t T) (any, bool, error) { return pf.read(project(t)) }
	if pf.def != nil {
		f.def = func(t T) { pf.def(project(t)) }
	}
	return f
}
