package orders

import "errors"

var (
	ErrCartEmpty         = errors.New("cart is empty")
	ErrCurrencyMismatch  = errors.New("currency mismatch in cart")
	ErrAddressNotOwned   = errors.New("address does not belong to the user")
	ErrDiscountInvalid   = errors.New("discount code is not valid")
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotPayable        = errors.New("order not payable")
	ErrInvalidQuantity   = errors.New("item quantity must be at least 1")
	ErrBadOutcome        = errors.New("payment outcome missing gateway payment id")
	ErrAmountMismatch    = errors.New("gateway amount does not match order total")
)
