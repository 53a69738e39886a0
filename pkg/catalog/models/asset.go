package models

import (
	"path/filepath"
	"strings"
	"time"
)

// AssetKind classifies an asset's content by filename extension.
type AssetKind string

const (
	// KindImage covers raster image formats.
	KindImage AssetKind = "image"
	// KindVideo covers video container formats.
	KindVideo AssetKind = "video"
	// KindAudio covers audio formats.
	KindAudio AssetKind = "audio"
	// KindDocument covers office and print documents.
	KindDocument AssetKind = "document"
	// KindArchive covers compressed archive formats.
	KindArchive AssetKind = "archive"
	// KindText covers plain text and markup.
	KindText AssetKind = "text"
	// KindUnknown is the fallback for unrecognized extensions.
	KindUnknown AssetKind = "unknown"
)

// kindByExtension maps lowercased filename extensions (without the dot)
// to their asset kind.
var kindByExtension = map[string]AssetKind{
	"png": KindImage, "jpg": KindImage, "jpeg": KindImage, "gif": KindImage,
	"webp": KindImage, "bmp": KindImage, "tiff": KindImage, "tif": KindImage,
	"svg": KindImage, "heic": KindImage, "avif": KindImage,

	"mp4": KindVideo, "mov": KindVideo, "avi": KindVideo, "mkv": KindVideo,
	"webm": KindVideo, "m4v": KindVideo, "mpg": KindVideo, "mpeg": KindVideo,

	"mp3": KindAudio, "wav": KindAudio, "flac": KindAudio, "ogg": KindAudio,
	"aac": KindAudio, "m4a": KindAudio, "opus": KindAudio,

	"pdf": KindDocument, "doc": KindDocument, "docx": KindDocument,
	"xls": KindDocument, "xlsx": KindDocument, "ppt": KindDocument,
	"pptx": KindDocument, "odt": KindDocument, "ods": KindDocument,

	"zip": KindArchive, "tar": KindArchive, "gz": KindArchive,
	"tgz": KindArchive, "bz2": KindArchive, "xz": KindArchive,
	"rar": KindArchive, "7z": KindArchive,

	"txt": KindText, "md": KindText, "csv": KindText, "json": KindText,
	"xml": KindText, "yaml": KindText, "yml": KindText, "html": KindText,
}

// KindForFilename classifies a filename by its extension.
func KindForFilename(filename string) AssetKind {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return KindUnknown
	}
	if kind, ok := kindByExtension[ext]; ok {
		return kind
	}
	return KindUnknown
}

// Asset is a metadata record describing one stored file. It belongs to
// exactly one folder; (folder_id, filename) pairs are unique.
type Asset struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	VolumeID string `gorm:"not null;size:36;index" json:"volume_id" validate:"required"`
	FolderID string `gorm:"not null;size:36;uniqueIndex:idx_assets_folder_filename" json:"folder_id" validate:"required"`
	Filename string `gorm:"not null;size:255;uniqueIndex:idx_assets_folder_filename" json:"filename" validate:"required,max=255"`

	Kind AssetKind `gorm:"not null;size:50;default:unknown" json:"kind" validate:"required"`
	Size int64     `gorm:"not null;default:0" json:"size" validate:"gte=0"`

	// Width and Height are only populated for image assets; zero means
	// unknown or not applicable.
	Width  int `json:"width,omitempty" validate:"gte=0"`
	Height int `json:"height,omitempty" validate:"gte=0"`

	DateModified time.Time `json:"date_modified"`

	ElementID string    `gorm:"size:36;index" json:"element_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Element *Element `gorm:"foreignKey:ElementID" json:"element,omitempty"`

	// IndexingInProgress marks an index-only registration: the row is
	// created while content indexing is still running, so no source
	// upload is required. Request state, never persisted.
	IndexingInProgress bool `gorm:"-" json:"-"`
}

// TableName returns the table name for Asset.
func (Asset) TableName() string {
	return "assets"
}

// IsNew reports whether the asset has not been persisted yet.
func (a *Asset) IsNew() bool {
	return a.ID == ""
}

// Title returns the asset's element title, or the empty string when no
// element is attached yet.
func (a *Asset) Title() string {
	if a.Element == nil {
		return ""
	}
	return a.Element.Title
}
