package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"
)

// Record is one wire record: an unordered mapping of JSON-like values. Request
// responses and pushed updates share this shape.
type Record map[string]any

// ParseRecord decodes a JSON object keeping numbers as json.Number so 64-bit keys survive.
func ParseRecord(data []byte) (Record, error) {
	var rec Record
	if err := decode(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return rec, nil
}

// ParseRecords decodes a JSON array of objects.
func ParseRecords(data []byte) ([]Record, error) {
	var recs []Record
	if err := decode(data, &recs); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return recs, nil
}

func decode(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}

// Object returns the nested object stored under key.
func (r Record) Object(key string) (Record, bool) {
	raw, ok := r[key]
	if !ok || raw == nil {
		return nil, false
	}
	return asRecord(raw)
}

// Objects returns the nested objects stored under key, skipping non-object elements.
func (r Record) Objects(key string) ([]Record, bool) {
	raw, ok := r[key]
	if !ok || raw == nil {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if rec, isRec := asRecord(item); isRec {
			out = append(out, rec)
		}
	}
	return out, true
}

var hasherPool = sync.Pool{New: func() any { return xxh3.New() }}

// Fingerprint hashes the canonical JSON form of rec (object keys sorted).
// ok is false when rec holds values JSON cannot encode.
func Fingerprint(rec Record) (sum uint64, ok bool) {
	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()
	defer hasherPool.Put(hasher)

	enc := json.NewEncoder(hasher)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return 0, false
	}
	return hasher.Sum64(), true
}
