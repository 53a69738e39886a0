package logger

import (
	"log/slog"
	"time"
)

// Canonical field keys used across the codebase so log lines stay
// greppable and dashboards stay stable.
const (
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyRequestID = "request_id"
	KeyOperation = "op"
	KeyClientIP  = "client_ip"

	KeyVolume     = "volume"
	KeyVolumeID   = "volume_id"
	KeyBackend    = "backend"
	KeyFolderID   = "folder_id"
	KeyAssetID    = "asset_id"
	KeyElementID  = "element_id"
	KeyPath       = "path"
	KeyFilename   = "filename"
	KeyKind       = "kind"
	KeySize       = "size"
	KeyCount      = "count"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// Err returns an error attribute, tolerating nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "<nil>")
	}
	return slog.String(KeyError, err.Error())
}

// Op returns an operation name attribute.
func Op(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// VolumeID returns a volume id attribute.
func VolumeID(id string) slog.Attr {
	return slog.String(KeyVolumeID, id)
}

// FolderID returns a folder id attribute.
func FolderID(id string) slog.Attr {
	return slog.String(KeyFolderID, id)
}

// AssetID returns an asset id attribute.
func AssetID(id string) slog.Attr {
	return slog.String(KeyAssetID, id)
}

// Path returns a logical path attribute.
func Path(path string) slog.Attr {
	return slog.String(KeyPath, path)
}

// Filename returns a filename attribute.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Count returns a count attribute.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// DurationMs returns the elapsed time since start as a duration_ms
// attribute.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
