package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrDiscountNotFound = errors.New("discount code not found")
)

// Store is the gorm-backed view onto catalog, cart and address data. The
// order engine consumes it through the narrow interfaces it declares itself.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// GetProduct is the source of truth for order-total computation; client
// submitted prices are never trusted.
func (s *Store) GetProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (s *Store) GetUserCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := s.db.WithContext(ctx).
		Preload("Items").
		First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Cart{}, nil // empty cart, not an error
	}
	return c, err
}

func (s *Store) ClearUserCart(ctx context.Context, userID string) error {
	var c Cart
	err := s.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error
}

func (s *Store) GetAddress(ctx context.Context, addressID string) (Address, error) {
	var a Address
	if err := s.db.WithContext(ctx).First(&a, "id = ?", addressID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Address{}, ErrAddressNotFound
		}
		return Address{}, err
	}
	return a, nil
}

func (s *Store) GetDiscountCode(ctx context.Context, code string) (DiscountCode, error) {
	var d DiscountCode
	if err := s.db.WithContext(ctx).First(&d, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DiscountCode{}, ErrDiscountNotFound
		}
		return DiscountCode{}, err
	}
	return d, nil
}
