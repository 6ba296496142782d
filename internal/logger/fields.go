package logger

// Field keys used across components so log lines can be grepped consistently.
const (
	KeyPath     = "path"
	KeyVersion  = "version"
	KeyHash     = "hash"
	KeyKey      = "key"
	KeyCodec    = "codec"
	KeySize     = "size"
	KeyExpected = "expected"
	KeyActual   = "actual"
	KeyError    = "error"
	KeyBackend  = "backend"
	KeyState    = "state"
	KeyCount    = "count"
)
