package email

import (
	"fmt"
	"strings"

	"github.com/example/letterpress-shop/internal/domain/order"
)

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(o *order.Order) string {
	var itemsHTML strings.Builder
	for _, item := range o.Items {
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			item.Name,
			item.Quantity,
			FormatCents(item.Price),
			FormatCents(item.Total),
		))
	}

	discountRow := ""
	if o.Discount > 0 {
		discountRow = fmt.Sprintf(
			`<p style="margin: 5px 0; font-size: 14px; color: #2e7d32;">Discount: -%s</p>`,
			FormatCents(o.Discount))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #2b2b2b; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f3a2d; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: #f5f1e8; margin: 0; font-size: 24px;">Thank You for Your Order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">We've received your wholesale order and our press room is getting started. You'll hear from us again when it ships.</p>

		<div style="background: #f5f1e8; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order Number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #1f3a2d; padding-bottom: 10px;">Order Details</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f5f1e8;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Unit Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f5f1e8; border-radius: 5px;">
			%s
			<span style="font-size: 14px; color: #666;">Order Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #1f3a2d; margin-left: 10px;">%s</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. If you have any questions about your order, reply to this email or contact our wholesale team.
		</p>
	</div>
</body>
</html>`, o.OrderNumber, itemsHTML.String(), discountRow, FormatCents(o.Total))
}

// BuildShippingNotificationBody builds the HTML body for the shipment notice
func BuildShippingNotificationBody(o *order.Order) string {
	tracking := ""
	if o.Shipping.TrackingNumber != "" {
		tracking = fmt.Sprintf(
			`<div style="background: #f5f1e8; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">%s Tracking Number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>`, o.Shipping.Carrier, o.Shipping.TrackingNumber)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #2b2b2b; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f3a2d; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: #f5f1e8; margin: 0; font-size: 24px;">Your Order Is on Its Way</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Order %s has left our press room.</p>
		%s
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message.
		</p>
	</div>
</body>
</html>`, o.OrderNumber, tracking)
}

// BuildAccountApprovedBody builds the HTML body for the account approval notice
func BuildAccountApprovedBody(name string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #2b2b2b; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f3a2d; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: #f5f1e8; margin: 0; font-size: 24px;">Welcome Aboard</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Hi %s,</p>
		<p>Your wholesale account has been approved. You can now sign in, browse the catalog at wholesale pricing, and place your first order.</p>
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message.
		</p>
	</div>
</body>
</html>`, name)
}

// FormatCents renders a minor-unit amount as dollars, e.g. 123456 -> $1,234.56.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := cents / 100
	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(dollars), cents%100)
}

func groupThousands(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}
	return result.String()
}
