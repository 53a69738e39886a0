package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys for catalog operations. Generic keys follow
// OpenTelemetry semantic conventions where one applies; catalog-specific
// keys use the "catalog." prefix and backend keys the "volume." prefix.
const (
	AttrOperation = "catalog.operation"
	AttrAssetID   = "catalog.asset_id"
	AttrFolderID  = "catalog.folder_id"
	AttrElementID = "catalog.element_id"
	AttrPath      = "catalog.path"
	AttrFilename  = "catalog.filename"
	AttrKind      = "catalog.kind"
	AttrSize      = "catalog.size"
	AttrCount     = "catalog.count"
	AttrNewAsset  = "catalog.new_asset"

	AttrVolumeID      = "volume.id"
	AttrVolumeName    = "volume.name"
	AttrVolumeBackend = "volume.backend"
	AttrVolumeLocal   = "volume.local"

	AttrClientIP  = "client.address"
	AttrRequestID = "http.request_id"
)

// Asset returns the span attributes identifying an asset.
func Asset(id, filename string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAssetID, id),
		attribute.String(AttrFilename, filename),
	}
}

// Volume returns the span attributes identifying a volume.
func Volume(id, backend string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrVolumeID, id),
		attribute.String(AttrVolumeBackend, backend),
	}
}

// Folder returns the span attributes identifying a folder.
func Folder(id, path string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrFolderID, id),
		attribute.String(AttrPath, path),
	}
}
