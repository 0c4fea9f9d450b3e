package core

import "github.com/google/uuid"

// NewID returns an opaque identifier for newly created resources.
func NewID() string {
	return uuid.NewString()
}

// CloneMap returns a shallow copy of m. Nil and empty maps yield nil so
// callers can treat absent metadata uniformly.
func CloneMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
