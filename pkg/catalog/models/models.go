// Package models defines the persisted catalog entities and their
// store-level error sentinels.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&Volume{},
		&Folder{},
		&Asset{},
		&Element{},
	}
}
