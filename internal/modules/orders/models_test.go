package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanShipTo(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusInTransit, true},
		{StatusConfirmed, StatusDelivered, true},
		{StatusShipped, StatusInTransit, true},
		{StatusShipped, StatusDelivered, true},
		{StatusInTransit, StatusDelivered, true},

		// Backward moves never happen.
		{StatusShipped, StatusConfirmed, false},
		{StatusInTransit, StatusShipped, false},
		{StatusDelivered, StatusInTransit, false},
		{StatusDelivered, StatusDelivered, false},

		// Confirmation is the payment engine's job, not fulfilment's.
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusConfirmed, false},

		{StatusCancelled, StatusShipped, false},
		{StatusConfirmed, StatusCancelled, false},
		{StatusConfirmed, "bogus", false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanShipTo(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusPending))
	assert.True(t, CanCancel(StatusConfirmed))
	assert.False(t, CanCancel(StatusShipped))
	assert.False(t, CanCancel(StatusInTransit))
	assert.False(t, CanCancel(StatusDelivered))
	assert.False(t, CanCancel(StatusCancelled))
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewOrderNumber(now)
		assert.Regexp(t, `^ORD-\d+-[0-9a-f]{8}$`, n)
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}
