package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-mirror/model"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"
)

type testBase struct {
	ID Value[model.Snowflake]
}

type testInner struct {
	Text Value[string]
	Size Value[int]
}

type testThing struct {
	testBase
	Name    Value[string]
	Count   Value[int]
	Created Value[time.Time]
	Tags    Value[[]string]
	Inner   Value[*testInner]
	Items   Value[[]*testInner]
	Kind    Value[string]
}

var (
	testBaseSchema = MustBuild[*testBase]("Base", func() *testBase { return &testBase{} }, nil,
		F("id", "id", func(b *testBase) *Value[model.Snowflake] { return &b.ID }, Key),
	)

	testInnerSchema = MustBuild[*testInner]("Inner", func() *testInner { return &testInner{} }, nil,
		F("text", "text", func(i *testInner) *Value[string] { return &i.Text }, String),
		F("size", "size", func(i *testInner) *Value[int] { return &i.Size }, Int),
	)

	testThingSchema = MustBuild[*testThing]("Thing", func() *testThing { return &testThing{} },
		[]Parent[*testThing]{Inherit(testBaseSchema, func(t *testThing) *testBase { return &t.testBase })},
		F("name", "name", func(t *testThing) *Value[string] { return &t.Name }, String),
		F("count", "count", func(t *testThing) *Value[int] { return &t.Count }, Int, Default(7)),
		F("created", "created_at", func(t *testThing) *Value[time.Time] { return &t.Created }, Time),
		F("tags", "tags", func(t *testThing) *Value[[]string] { return &t.Tags }, Array(String)),
		F("inner", "inner", func(t *testThing) *Value[*testInner] { return &t.Inner }, Object(testInnerSchema)),
		F("items", "items", func(t *testThing) *Value[[]*testInner] { return &t.Items }, Array(Object(testInnerSchema))),
		F("kind", "kind", func(t *testThing) *Value[string] { return &t.Kind }, String),
	)
)

func fullRecord() Record {
	return Record{
		"id":         "42",
		"name":       "thing",
		"count":      3,
		"created_at": "2021-03-04T05:06:07Z",
		"tags":       []any{"a", "b"},
		"inner":      map[string]any{"text": "hi", "size": 2},
		"items":      []any{map[string]any{"text": "x"}, map[string]any{"size": 9}},
		"kind":       "k",
	}
}

// TestSchema_Unmarshal_DecodesEveryField decodes scalars, arrays, nested objects and inherited fields.
func TestSchema_Unmarshal_DecodesEveryField(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(fullRecord(), nil)
	require.NoError(t, err)

	id, ok := thing.ID.Get()
	require.True(t, ok)
	require.Equal(t, model.Snowflake(42), id)
	require.Equal(t, "thing", thing.Name.Or(""))
	require.Equal(t, 3, thing.Count.Or(0))
	require.Equal(t, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), thing.Created.Or(time.Time{}))
	require.Equal(t, []string{"a", "b"}, thing.Tags.Or(nil))

	inner, ok := thing.Inner.Get()
	require.True(t, ok)
	require.Equal(t, "hi", inner.Text.Or(""))
	require.Equal(t, 2, inner.Size.Or(0))

	items := thing.Items.Or(nil)
	require.Len(t, items, 2)
	require.Equal(t, "x", items[0].Text.Or(""))
	require.False(t, items[0].Size.IsSet())
	require.Equal(t, 9, items[1].Size.Or(0))
}

// TestSchema_RoundTrip reproduces every present field of the source record.
func TestSchema_RoundTrip(t *testing.T) {
	rec := fullRecord()
	thing, err := testThingSchema.Unmarshal(rec, nil)
	require.NoError(t, err)

	out, err := testThingSchema.Marshal(thing)
	require.NoError(t, err)

	want := fullRecord()
	want["items"] = []any{map[string]any{"text": "x"}, map[string]any{"size": 9}}
	require.Equal(t, want, out)
}

// TestSchema_RoundTrip_TimestampNormalization compares timestamps modulo formatting.
func TestSchema_RoundTrip_TimestampNormalization(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(Record{"id": "1", "created_at": "2021-03-04T05:06:07.000000+00:00"}, nil)
	require.NoError(t, err)

	out, err := testThingSchema.Marshal(thing, "created")
	require.NoError(t, err)

	parsed, err := time.Parse(time.RFC3339Nano, out["created_at"].(string))
	require.NoError(t, err)
	require.True(t, parsed.Equal(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)))
}

// TestSchema_Unmarshal_Defaults applies declared defaults only for absent keys.
func TestSchema_Unmarshal_Defaults(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(Record{"id": 1}, nil)
	require.NoError(t, err)
	require.Equal(t, 7, thing.Count.Or(0))
	require.False(t, thing.Name.IsSet(), "fields without default stay unset")

	thing, err = testThingSchema.Unmarshal(Record{"id": 1, "count": 1}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, thing.Count.Or(0))
}

// TestSchema_Unmarshal_NullUnsets treats a present null as an explicit unset.
func TestSchema_Unmarshal_NullUnsets(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(Record{"id": 1, "name": "n"}, nil)
	require.NoError(t, err)

	require.NoError(t, testThingSchema.Update(thing, Record{"name": nil}))
	require.False(t, thing.Name.IsSet())

	out, err := testThingSchema.Marshal(thing)
	require.NoError(t, err)
	require.NotContains(t, out, "name")
}

// TestSchema_Update_Idempotent applying one record twice equals applying it once.
func TestSchema_Update_Idempotent(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(Record{"id": 1}, nil)
	require.NoError(t, err)

	patch := Record{"name": "x", "tags": []any{"t"}}
	require.NoError(t, testThingSchema.Update(thing, patch))
	once, err := testThingSchema.Marshal(thing)
	require.NoError(t, err)

	require.NoError(t, testThingSchema.Update(thing, patch))
	twice, err := testThingSchema.Marshal(thing)
	require.NoError(t, err)

	require.Equal(t, once, twice)
}

// TestSchema_Update_Partial leaves attributes absent from the record untouched.
func TestSchema_Update_Partial(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(fullRecord(), nil)
	require.NoError(t, err)
	before, err := testThingSchema.Marshal(thing)
	require.NoError(t, err)

	require.NoError(t, testThingSchema.Update(thing, Record{}))
	after, err := testThingSchema.Marshal(thing)
	require.NoError(t, err)
	require.Equal(t, before, after)

	require.NoError(t, testThingSchema.Update(thing, Record{"name": "patched"}))
	require.Equal(t, "patched", thing.Name.Or(""))
	require.Equal(t, 3, thing.Count.Or(0), "defaults are not re-applied by update")
}

// TestSchema_Update_MismatchIsTransactional fails without touching any attribute.
func TestSchema_Update_MismatchIsTransactional(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(Record{"id": 1, "name": "keep", "count": 1}, nil)
	require.NoError(t, err)

	err = testThingSchema.Update(thing, Record{"name": "changed", "count": "not-a-number"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSchemaMismatch))
	require.Equal(t, platformerrors.CodeSchemaFailed, platformerrors.GetCode(err))

	var perr platformerrors.PlatformError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "count", perr.Context()["attr"])
	require.Equal(t, "keep", thing.Name.Or(""))
	require.Equal(t, 1, thing.Count.Or(0))
}

// TestSchema_Unmarshal_NestedMismatch propagates nested decode failures.
func TestSchema_Unmarshal_NestedMismatch(t *testing.T) {
	_, err := testThingSchema.Unmarshal(Record{"id": 1, "items": []any{map[string]any{"size": "big"}}}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSchemaMismatch))

	_, err = testThingSchema.Unmarshal(Record{"id": 1, "inner": "scalar"}, nil)
	require.True(t, errors.Is(err, ErrSchemaMismatch))
}

// TestSchema_Unmarshal_UsesGivenConstructor delegates construction to the caller.
func TestSchema_Unmarshal_UsesGivenConstructor(t *testing.T) {
	var calls int
	thing, err := testThingSchema.Unmarshal(Record{"id": 1, "kind": "k"}, func() *testThing {
		calls++
		return &testThing{Name: Some("preset")}
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, "preset", thing.Name.Or(""))
	require.Equal(t, "k", thing.Kind.Or(""))
}

// TestSchema_Unmarshal_NoConstructOnError does not construct when decoding fails.
func TestSchema_Unmarshal_NoConstructOnError(t *testing.T) {
	var calls int
	_, err := testThingSchema.Unmarshal(Record{"id": "nope"}, func() *testThing {
		calls++
		return &testThing{}
	})
	require.Error(t, err)
	require.Zero(t, calls)
}

// TestSchema_Marshal_Subset encodes only the named attributes and rejects unknown ones.
func TestSchema_Marshal_Subset(t *testing.T) {
	thing, err := testThingSchema.Unmarshal(fullRecord(), nil)
	require.NoError(t, err)

	out, err := testThingSchema.Marshal(thing, "id", "name")
	require.NoError(t, err)
	require.Equal(t, Record{"id": "42", "name": "thing"}, out)

	_, err = testThingSchema.Marshal(thing, "name", "bogus", "also")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownKeys))
	require.Contains(t, err.Error(), "also, bogus")
}

// TestSchema_Composition_InheritsAndOverrides exposes parent fields and lets overrides win.
func TestSchema_Composition_InheritsAndOverrides(t *testing.T) {
	upper := Codec[string]{
		Kind: "string",
		Decode: func(raw any) (string, error) {
			s, err := String.Decode(raw)
			return s + "!", err
		},
		Encode: func(v string) (any, error) { return v[:len(v)-1], nil },
	}
	child := MustBuild[*testThing]("Child", func() *testThing { return &testThing{} },
		[]Parent[*testThing]{Inherit(testThingSchema, func(t *testThing) *testThing { return t })},
		F("name", "name", func(t *testThing) *Value[string] { return &t.Name }, upper),
	)

	require.Len(t, child.Fields(), len(testThingSchema.Fields()))
	require.Equal(t, "name", child.Fields()[0].Attr(), "most derived field first")
	require.True(t, child.Extends("Thing"))
	require.True(t, child.Extends("Base"))
	require.False(t, child.Extends("Inner"))

	thing, err := child.Unmarshal(Record{"id": 5, "name": "n", "kind": "k"}, nil)
	require.NoError(t, err)
	require.Equal(t, "n!", thing.Name.Or(""))
	require.Equal(t, "k", thing.Kind.Or(""), "parent field not overridden is inherited")
	require.Equal(t, 7, thing.Count.Or(0), "parent default is inherited")

	out, err := child.Marshal(thing, "name")
	require.NoError(t, err)
	require.Equal(t, "n", out["name"])
}

// TestSchema_Composition_FirstParentWins resolves attribute clashes between parents left to right.
func TestSchema_Composition_FirstParentWins(t *testing.T) {
	a := MustBuild[*testInner]("A", nil, nil, F("text", "a_text", func(i *testInner) *Value[string] { return &i.Text }, String))
	b := MustBuild[*testInner]("B", nil, nil,
		F("text", "b_text", func(i *testInner) *Value[string] { return &i.Text }, String),
		F("size", "size", func(i *testInner) *Value[int] { return &i.Size }, Int),
	)
	self := func(i *testInner) *testInner { return i }
	ab := MustBuild[*testInner]("AB", func() *testInner { return &testInner{} }, []Parent[*testInner]{Inherit(a, self), Inherit(b, self)})

	require.Equal(t, []string{"a_text", "size"}, ab.WireKeys())
}

// TestSchema_Composition_RejectsIncompatibleOverride refuses to change a field's kind.
func TestSchema_Composition_RejectsIncompatibleOverride(t *testing.T) {
	_, err := Build[*testThing]("Bad", nil,
		[]Parent[*testThing]{Inherit(testThingSchema, func(t *testThing) *testThing { return t })},
		F("name", "name", func(t *testThing) *Value[int] { return &t.Count }, Int),
	)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIncompatibleOverride))
}

// TestSchema_Build_RejectsMalformedDeclarations catches duplicates and broken fields.
func TestSchema_Build_RejectsMalformedDeclarations(t *testing.T) {
	name := func(t *testThing) *Value[string] { return &t.Name }

	_, err := Build[*testThing]("Dup", nil, nil, F("name", "a", name, String), F("name", "b", name, String))
	require.True(t, errors.Is(err, ErrInvalidSchema))

	_, err = Build[*testThing]("Wire", nil, nil, F("a", "w", name, String), F("b", "w", name, String))
	require.True(t, errors.Is(err, ErrInvalidSchema))

	_, err = Build[*testThing]("NilSlot", nil, nil, F[*testThing, string]("a", "a", nil, String))
	require.True(t, errors.Is(err, ErrInvalidSchema))

	_, err = Build[*testThing]("NoParent", nil, []Parent[*testThing]{Inherit[*testThing, *testBase](nil, nil)})
	require.True(t, errors.Is(err, ErrInvalidSchema))

	require.Panics(t, func() {
		MustBuild[*testThing]("Panic", nil, nil, F("a", "", name, String))
	})
}

// TestSchema_Unmarshal_NoConstructor fails when neither the schema nor the caller can construct.
func TestSchema_Unmarshal_NoConstructor(t *testing.T) {
	s := MustBuild[*testInner]("Bare", nil, nil)
	_, err := s.Unmarshal(Record{}, nil)
	require.True(t, errors.Is(err, ErrInvalidSchema))

	_, err = s.New()
	require.Error(t, err)
}

// TestSchema_Validate checks outbound keys against the schema's wire keys.
func TestSchema_Validate(t *testing.T) {
	require.NoError(t, testInnerSchema.Validate("Inner.create", Record{"text": "t"}, "text"))

	err := testInnerSchema.Validate("Inner.create", Record{"size": 1}, "text")
	require.True(t, errors.Is(err, ErrMissingKeys))

	err = testInnerSchema.Validate("Inner.create", Record{"text": "t", "color": 1})
	require.True(t, errors.Is(err, ErrUnknownKeys))
	require.Contains(t, err.Error(), "color")
}

// TestValidateKeys_NamesInvalidKeys reports every invalid key sorted.
func TestValidateKeys_NamesInvalidKeys(t *testing.T) {
	err := ValidateKeys("Guild.modify", map[string]any{"name": 1, "zeta": 2, "alpha": 3}, nil, []string{"name"})
	require.Error(t, err)
	require.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))

	var perr platformerrors.PlatformError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, []string{"alpha", "zeta"}, perr.Context()["keys"])
}

// TestCodec_Enums accepts only declared values.
func TestCodec_Enums(t *testing.T) {
	type color string
	c := StringEnum[color]("color", "red", "blue")
	v, err := c.Decode("red")
	require.NoError(t, err)
	require.Equal(t, color("red"), v)
	_, err = c.Decode("green")
	require.Error(t, err)

	type level int
	l := IntEnum[level]("level", 0, 1)
	lv, err := l.Decode(json.Number("1"))
	require.NoError(t, err)
	require.Equal(t, level(1), lv)
	_, err = l.Decode(2)
	require.Error(t, err)
}

// TestCodec_Int rejects fractional and non-numeric values.
func TestCodec_Int(t *testing.T) {
	v, err := Int.Decode(float64(3))
	require.NoError(t, err)
	require.Equal(t, 3, v)

	_, err = Int.Decode(3.5)
	require.Error(t, err)
	_, err = Int.Decode("3")
	require.Error(t, err)
}

// TestParseRecord_KeepsLargeKeys keeps snowflakes exact through JSON decoding.
func TestParseRecord_KeepsLargeKeys(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"id": 175928847299117063, "inner": {"text": "t"}}`))
	require.NoError(t, err)

	thing, err := testThingSchema.Unmarshal(rec, nil)
	require.NoError(t, err)
	require.Equal(t, model.Snowflake(175928847299117063), thing.ID.Or(0))

	inner, ok := rec.Object("inner")
	require.True(t, ok)
	require.Equal(t, "t", inner["text"])

	recs, err := ParseRecords([]byte(`[{"id": "1"}, {"id": "2"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	_, err = ParseRecord([]byte(`[`))
	require.Error(t, err)
}

// TestRecord_Objects returns nested object arrays.
func TestRecord_Objects(t *testing.T) {
	rec := Record{"items": []any{map[string]any{"a": 1}, "skip", Record{"b": 2}}}
	items, ok := rec.Objects("items")
	require.True(t, ok)
	require.Len(t, items, 2)

	_, ok = rec.Objects("missing")
	require.False(t, ok)
}

// TestFingerprint_Stable hashes equal records equally regardless of construction order.
func TestFingerprint_Stable(t *testing.T) {
	a := Record{"id": "1", "name": "x", "nested": map[string]any{"b": 2, "a": 1}}
	b := Record{"nested": map[string]any{"a": 1, "b": 2}, "name": "x", "id": "1"}

	fa, ok := Fingerprint(a)
	require.True(t, ok)
	fb, ok := Fingerprint(b)
	require.True(t, ok)
	require.Equal(t, fa, fb)

	fc, _ := Fingerprint(Record{"id": "1", "name": "y"})
	require.NotEqual(t, fa, fc)

	_, ok = Fingerprint(Record{"ch": make(chan int)})
	require.False(t, ok)
}
