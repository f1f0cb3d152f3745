package types

import "github.com/oklog/ulid/v2"

// GenerateID returns a prefixed, sortable unique id.
func GenerateID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}

func GenerateTraceID() string { return GenerateID("trc") }
