package store

import "time"

// Sentinel field values interpreted by Update and batch writes.
type (
	deleteField     struct{}
	serverTimestamp struct{}

	incrementValue struct {
		By int64
	}
)

// DeleteField marks a field for removal in an Update.
var DeleteField = deleteField{}

// ServerTimestamp marks a field to be set to the store's commit time.
var ServerTimestamp = serverTimestamp{}

// Increment returns a sentinel that atomically adds by to a numeric
// field. This is the only read-free mutation the store offers; counters
// that need true atomicity (comment counts) must use it instead of
// read-modify-write.
func Increment(by int64) any {
	return incrementValue{By: by}
}

// IsSentinel reports whether v is one of the sentinel field values.
func IsSentinel(v any) bool {
	switch v.(type) {
	case deleteField, serverTimestamp, incrementValue:
		return true
	}
	return false
}

// ResolveSentinels rewrites sentinel values in fields against current,
// the document's existing fields, returning the merged field map and
// the list of deleted field names. Shared by adapter implementations;
// now is the commit timestamp used for ServerTimestamp fields.
func ResolveSentinels(current, fields map[string]any, now time.Time) (map[string]any, []string) {
	merged := make(map[string]any, len(current)+len(fields))
	for k, v := range current {
		merged[k] = v
	}
	var deleted []string
	for k, v := range fields {
		switch sv := v.(type) {
		case deleteField:
			delete(merged, k)
			deleted = append(deleted, k)
		case serverTimestamp:
			merged[k] = now.UTC().Format(time.RFC3339Nano)
		case incrementValue:
			// JSON numbers decode as float64; keep the stored
			// representation uniform.
			merged[k] = float64(numericValue(current[k]) + sv.By)
		default:
			merged[k] = v
		}
	}
	return merged, deleted
}

func numericValue(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
