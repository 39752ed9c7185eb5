package log

// key is a private type to avoid context key collisions across packages.
type key string

const (
	traceIDKey key = "trace_id"
	userIDKey  key = "user_id"
)
