package models

// User represents a registered customer.
type User struct {
	BaseModel
	Email        string  `gorm:"uniqueIndex" json:"email"`
	PasswordHash string  `json:"-"`
	Name         *string `json:"name"`
	Orders       []Order `json:"orders,omitempty"`
}
