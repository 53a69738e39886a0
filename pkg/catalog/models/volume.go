package models

import (
	"encoding/json"
	"time"
)

// Volume defines a configured storage backend holding physical files.
// Folders and, transitively, assets are owned by exactly one volume.
type Volume struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Backend   string    `gorm:"not null;size:50" json:"backend"` // registered backend type, e.g. "fs", "s3"
	Config    string    `gorm:"type:text" json:"-"`              // JSON blob with backend-specific settings
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Parsed configuration (not stored in DB)
	ParsedConfig map[string]any `gorm:"-" json:"config,omitempty"`
}

// TableName returns the table name for Volume.
func (Volume) TableName() string {
	return "volumes"
}

// GetConfig returns the parsed backend configuration.
func (v *Volume) GetConfig() (map[string]any, error) {
	if v.ParsedConfig != nil {
		return v.ParsedConfig, nil
	}
	if v.Config == "" {
		return make(map[string]any), nil
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(v.Config), &cfg); err != nil {
		return nil, err
	}
	v.ParsedConfig = cfg
	return cfg, nil
}

// SetConfig sets the backend configuration from a map.
func (v *Volume) SetConfig(cfg map[string]any) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	v.Config = string(data)
	v.ParsedConfig = cfg
	return nil
}
