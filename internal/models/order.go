package models

// Order statuses. The delivery engine and the teleport shortcut only ever
// move an order to StatusCompleted; the rest are set administratively.
const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusShipped   = "SHIPPED"
	StatusCompleted = "COMPLETED"
	StatusCanceled  = "CANCELED"
)

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Order is a placed order. UserID is nil for guest checkouts.
type Order struct {
	BaseModel
	UserID *uint       `gorm:"index" json:"userId"`
	User   *User       `json:"user,omitempty"`
	Status string      `json:"status"`
	Total  float64     `json:"total"`
	Items  []OrderItem `json:"items,omitempty"`
}

// OrderItem is a line item. Price snapshots the unit price at checkout so
// later catalog price changes never alter order history.
type OrderItem struct {
	BaseModel
	OrderID   uint    `gorm:"index" json:"orderId"`
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
