package models

// Product is a catalog entry. Price is the current selling price;
// OriginalPrice, when set and higher, marks the product as discounted.
type Product struct {
	BaseModel
	Name          string             `json:"name"`
	Slug          string             `gorm:"uniqueIndex" json:"slug"`
	Description   string             `json:"description"`
	Price         float64            `json:"price"`
	OriginalPrice *float64           `json:"originalPrice"`
	SKU           string             `json:"sku"`
	Stock         int                `json:"stock"`
	Tag           *string            `json:"tag"`
	Collection    *string            `gorm:"index" json:"collection"`
	CategoryID    *uint              `gorm:"index" json:"categoryId"`
	Category      *Category          `json:"category,omitempty"`
	Images        []ProductImage     `json:"images,omitempty"`
	Attributes    []ProductAttribute `json:"attributes,omitempty"`
	Reviews       []Review           `json:"reviews,omitempty"`
}

// ProductImage is a gallery image, ordered by DisplayOrder.
type ProductImage struct {
	BaseModel
	ProductID    uint   `gorm:"index" json:"productId"`
	URL          string `json:"url"`
	DisplayOrder int    `json:"displayOrder"`
}

// ProductAttribute is a name/value facet (brand, color, size, feature, ...).
type ProductAttribute struct {
	BaseModel
	ProductID uint   `gorm:"index" json:"productId"`
	Name      string `gorm:"index:idx_attr_name_value" json:"name"`
	Value     string `gorm:"index:idx_attr_name_value" json:"value"`
}
