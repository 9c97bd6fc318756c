package schema

// Value holds one decoded attribute. The zero Value is unset, which is distinct
// from a set zero value: unset attributes are skipped by Marshal.
type Value[V any] struct {
	v  V
	ok bool
}

// Some returns a set Value.
func Some[V any](v V) Value[V] {
	return Value[V]{v: v, ok: true}
}

func (x Value[V]) Get() (V, bool) { return x.v, x.ok }
func (x Value[V]) IsSet() bool    { return x.ok }

// Or returns the held value or def when unset.
func (x Value[V]) Or(def V) V {
	if x.ok {
		return x.v
	}
	return def
}

func (x *Value[V]) Set(v V) {
	x.v, x.ok = v, true
}

func (x *Value[V]) Unset() {
	var zero V
	x.v, x.ok = zero, false
}
