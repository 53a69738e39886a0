package models

import "errors"

// Common errors for catalog store operations.
var (
	// Volume errors
	ErrVolumeNotFound  = errors.New("volume not found")
	ErrDuplicateVolume = errors.New("volume already exists")
	ErrVolumeInUse     = errors.New("volume still owns folders")

	// Folder errors
	ErrFolderNotFound  = errors.New("folder not found")
	ErrDuplicateFolder = errors.New("folder already exists")

	// Asset errors
	ErrAssetNotFound  = errors.New("asset not found")
	ErrDuplicateAsset = errors.New("asset already exists")

	// Element errors
	ErrElementNotFound = errors.New("element not found")
)
