package models

// Category groups products; top-level categories have a nil parent.
type Category struct {
	BaseModel
	Name     string `json:"name"`
	Slug     string `gorm:"uniqueIndex" json:"slug"`
	ParentID *uint  `gorm:"index" json:"parentId"`
}
