package models

import "time"

// ElementTypeAsset is the element type used for asset content records.
const ElementTypeAsset = "asset"

// Element is the identity and content record attached to an asset. The
// element persistence service owns identity assignment for these rows.
type Element struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      string    `gorm:"not null;size:50;default:asset" json:"type"`
	Locale    string    `gorm:"size:10" json:"locale,omitempty"`
	Title     string    `gorm:"size:255" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Element.
func (Element) TableName() string {
	return "elements"
}
