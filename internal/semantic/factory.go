package semantic

import "fmt"

// New creates a vector index of the named kind. Supported kinds are
// "memory" (exact brute-force, the default) and "hnsw" (approximate).
func New(kind string, dimensions int) (Index, error) {
	switch kind {
	case "", "memory":
		return NewMemoryIndex(dimensions)
	case "hnsw":
		return NewHNSWIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown vector index kind %q", kind)
	}
}
