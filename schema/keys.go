package schema

import "slices"

// ValidateKeys rejects kwargs carrying keys outside accepted or missing any of
// required. It is meant to run before any network or cache effect.
func ValidateKeys[M ~map[string]any](op string, kwargs M, required, accepted []string) error {
	var missing []string
	for _, key := range required {
		if _, ok := kwargs[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return missingKeys(op, missing)
	}

	var unknown []string
	for key := range kwargs {
		if !slices.Contains(accepted, key) && !slices.Contains(required, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return unknownKeys(op, unknown)
	}
	return nil
}
