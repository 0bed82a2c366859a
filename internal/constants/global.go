package constants

const AppName = "tcrelay"

// Protocol headers exchanged between the relay and its callers.
const (
	ProtocolRequestIDKey   = "X-Request-ID"
	ProtocolCacheStatusKey = "X-Cache"
)
