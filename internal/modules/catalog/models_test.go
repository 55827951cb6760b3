package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscountCodeValidAt(t *testing.T) {
	now := time.Now()
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	d := DiscountCode{Code: "X", Type: DiscountFixed, Value: 100, Active: true, ValidFrom: &from, ValidUntil: &until}
	assert.True(t, d.ValidAt(now))
	assert.False(t, d.ValidAt(now.Add(2*time.Hour)))
	assert.False(t, d.ValidAt(now.Add(-2*time.Hour)))

	d.Active = false
	assert.False(t, d.ValidAt(now))

	// Open-ended windows.
	open := DiscountCode{Code: "Y", Type: DiscountFixed, Value: 100, Active: true}
	assert.True(t, open.ValidAt(now))
}

func TestDiscountCodeAmountOff(t *testing.T) {
	pct := DiscountCode{Type: DiscountPercentage, Value: 10}
	assert.Equal(t, 100, pct.AmountOff(1000))
	assert.Equal(t, 0, pct.AmountOff(0))

	fixed := DiscountCode{Type: DiscountFixed, Value: 300}
	assert.Equal(t, 300, fixed.AmountOff(1000))

	// Never exceeds the subtotal.
	assert.Equal(t, 200, fixed.AmountOff(200))

	neg := DiscountCode{Type: DiscountPercentage, Value: -5}
	assert.Equal(t, 0, neg.AmountOff(1000))

	unknown := DiscountCode{Type: "bogus", Value: 50}
	assert.Equal(t, 0, unknown.AmountOff(1000))
}
