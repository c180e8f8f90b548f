package models

// Setting stores a named JSON blob, e.g. the "global" client theme settings.
type Setting struct {
	Key   string `gorm:"primaryKey;size:100" json:"key"`
	Value string `gorm:"type:text;not null" json:"value"`
}
