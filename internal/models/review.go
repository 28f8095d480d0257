package models

// Review is a customer review; UserID is nil for anonymous reviews.
type Review struct {
	BaseModel
	ProductID uint    `gorm:"index" json:"productId"`
	UserID    *uint   `gorm:"index" json:"userId"`
	Rating    int     `json:"rating"`
	Title     *string `json:"title"`
	Body      string  `json:"body"`
}
