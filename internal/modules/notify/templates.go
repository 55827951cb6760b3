package notify

import (
	"fmt"

	"github.com/ramsey2004/radhikas-homekraft-2-sub002/internal/modules/orders"
)

type content struct {
	Subject string
	Text    string
	HTML    string
}

// statusLine is the fixed kind -> customer message table.
var statusLine = map[string]string{
	orders.NotifyOrderConfirmed: "Your order has been confirmed.",
	orders.NotifyPaymentFailed:  "Your payment was declined. Please try again.",
	orders.NotifyOrderShipped:   "Your order has been shipped.",
	orders.NotifyOrderInTransit: "Your order is in transit.",
	orders.NotifyOrderDelivered: "Your order has been delivered. Thank you for shopping with us!",
	orders.NotifyOrderCancelled: "Your order has been cancelled.",
	orders.NotifyOrderRefunded:  "Your order has been cancelled and the payment refunded.",
}

var subjectFor = map[string]string{
	orders.NotifyOrderConfirmed: "Order Confirmation",
	orders.NotifyPaymentFailed:  "Payment Failed",
	orders.NotifyOrderShipped:   "Order Shipped",
	orders.NotifyOrderInTransit: "Order In Transit",
	orders.NotifyOrderDelivered: "Order Delivered",
	orders.NotifyOrderCancelled: "Order Cancelled",
	orders.NotifyOrderRefunded:  "Order Refunded",
}

func render(kind, customerName string, o orders.Order) (content, bool) {
	line, ok := statusLine[kind]
	if !ok {
		return content{}, false
	}

	subject := fmt.Sprintf("%s - %s - Radhika's HomeKraft", subjectFor[kind], o.Number)
	total := formatMoney(o.TotalCents, o.Currency)

	text := fmt.Sprintf("Hello %s,\n\n%s\n\nOrder No: %s\nTotal: %s\n\nRadhika's HomeKraft",
		customerName, line, o.Number, total)

	extra := ""
	if kind == orders.NotifyOrderShipped || kind == orders.NotifyOrderInTransit {
		if o.TrackingNumber != nil {
			extra = fmt.Sprintf("<p><strong>Tracking No:</strong> %s</p>", *o.TrackingNumber)
			text += "\nTracking No: " + *o.TrackingNumber
		}
		if o.EstimatedDelivery != nil {
			eta := o.EstimatedDelivery.Format("02 Jan 2006")
			extra += fmt.Sprintf("<p><strong>Estimated delivery:</strong> %s</p>", eta)
			text += "\nEstimated delivery: " + eta
		}
	}

	html := fmt.Sprintf(`
<html>
  <body style="font-family: sans-serif;">
    <h2>%s</h2>
    <p>Hello %s,</p>
    <p>%s</p>
    <p><strong>Order No:</strong> %s</p>
    <p><strong>Total:</strong> %s</p>
    %s
    <p>Radhika's HomeKraft</p>
  </body>
</html>
`, subjectFor[kind], customerName, line, o.Number, total, extra)

	return content{Subject: subject, Text: text, HTML: html}, true
}

func formatMoney(cents int, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
