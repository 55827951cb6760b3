package catalog

import "time"

type Product struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	Name       string `gorm:"type:varchar(255);not null"`
	SKU        string `gorm:"type:varchar(64);not null;uniqueIndex:ux_products_sku"`
	PriceCents int    `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null"`
	Stock      int    `gorm:"not null"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
	UpdatedAt time.Time `gorm:"precision:3;not null"`
}

func (Product) TableName() string { return "products" }

type Cart struct {
	ID     string  `gorm:"type:char(36);primaryKey"`
	UserID *string `gorm:"type:char(36);index:ix_carts_user_id"`

	Items []CartItem `gorm:"foreignKey:CartID"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
	UpdatedAt time.Time `gorm:"precision:3;not null"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	CartID    string `gorm:"type:char(36);not null;index:ix_cart_items_cart_id"`
	ProductID string `gorm:"type:char(36);not null;index:ix_cart_items_product_id"`
	Quantity  int    `gorm:"not null"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
}

func (CartItem) TableName() string { return "cart_items" }

type Address struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	UserID     string `gorm:"type:char(36);not null;index:ix_addresses_user_id"`
	FirstName  string `gorm:"type:varchar(100);not null"`
	LastName   string `gorm:"type:varchar(100);not null"`
	Line1      string `gorm:"type:varchar(255);not null"`
	Line2      string `gorm:"type:varchar(255)"`
	City       string `gorm:"type:varchar(100);not null"`
	PostalCode string `gorm:"type:varchar(32);not null"`
	Country    string `gorm:"type:char(2);not null"`
	Phone      string `gorm:"type:varchar(32);not null"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
	UpdatedAt time.Time `gorm:"precision:3;not null"`
}

func (Address) TableName() string { return "addresses" }

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type DiscountCode struct {
	Code       string     `gorm:"type:varchar(64);primaryKey"`
	Type       string     `gorm:"type:varchar(16);not null"` // percentage|fixed
	Value      int        `gorm:"not null"`                  // percent (0-100) or cents
	ValidFrom  *time.Time `gorm:"precision:3"`
	ValidUntil *time.Time `gorm:"precision:3"`
	Active     bool       `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"precision:3;not null"`
}

func (DiscountCode) TableName() string { return "discount_codes" }

// ValidAt reports whether the code may be applied at the given instant.
func (d DiscountCode) ValidAt(t time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ValidFrom != nil && t.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && t.After(*d.ValidUntil) {
		return false
	}
	return true
}

// AmountOff returns the discount in cents for a given subtotal, clamped to it.
func (d DiscountCode) AmountOff(subtotalCents int) int {
	var off int
	switch d.Type {
	case DiscountPercentage:
		off = subtotalCents * d.Value / 100
	case DiscountFixed:
		off = d.Value
	}
	if off < 0 {
		off = 0
	}
	if off > subtotalCents {
		off = subtotalCents
	}
	return off
}
