package catalog

import (
	"image"
	"io"
	"path/filepath"
	"strings"

	// Registered decoders for the dimension probe. Formats outside this
	// set simply keep zero dimensions.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// reservedFilenameChars are replaced during normalization. The set covers
// path separators plus the characters most filesystems and object stores
// reject or mangle.
const reservedFilenameChars = `/\:*?"<>|`

// NormalizeFilename strips directory components from name and replaces
// reserved characters with underscores. Surrounding whitespace is
// trimmed; the result can be empty, which the save pipeline rejects
// during validation.
func NormalizeFilename(name string) string {
	// Drop any path prefix first, tolerating Windows-style separators.
	name = strings.ReplaceAll(name, `\`, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(reservedFilenameChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// DefaultTitle derives a display title from a filename: the extension is
// stripped and underscores become spaces.
func DefaultTitle(filename string) string {
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	title = strings.ReplaceAll(title, "_", " ")
	return strings.TrimSpace(title)
}

// probeImageDimensions decodes just the header of an image stream and
// returns its pixel dimensions. The reader is rewound before and after
// the probe so callers can keep using it.
func probeImageDimensions(r io.ReadSeeker) (width, height int, err error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
