package mailer

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/boutiqueapp/boutique/internal/domain"
)

// Locale parses a BCP 47 tag such as "fr" or "en-GB", defaulting to French.
func Locale(tag string) language.Tag {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return language.French
	}
	return t
}

// FormatAmount renders amount with the grouping rules of lang, e.g. "1,234.50 EUR".
func FormatAmount(lang language.Tag, amount float64, currency string) string {
	return message.NewPrinter(lang).Sprintf("%.2f %s", amount, currency)
}

// OrderConfirmation renders the mail sent to a customer after checkout.
func OrderConfirmation(lang language.Tag, shopName, currency string, order *domain.Order) (subject, body string) {
	ref := strconv.FormatInt(order.ID, 10)
	subject = fmt.Sprintf("%s - commande %s", shopName, ref)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Merci pour votre commande n° %s.</p><table>", ref)
	for _, item := range order.Items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&b, "<tr><td>%s</td><td>x%d</td><td>%s</td></tr>",
			html.EscapeString(item.ProductName), item.Quantity, FormatAmount(lang, line.InexactFloat64(), currency))
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p>Sous-total : %s</p>", FormatAmount(lang, order.Subtotal, currency))
	if order.DiscountAmount > 0 {
		fmt.Fprintf(&b, "<p>Remise : -%s</p>", FormatAmount(lang, order.DiscountAmount, currency))
	}
	fmt.Fprintf(&b, "<p>Livraison : %s</p>", FormatAmount(lang, order.ShippingAmount, currency))
	fmt.Fprintf(&b, "<p><strong>Total : %s</strong></p>", FormatAmount(lang, order.TotalAmount, currency))
	return subject, b.String()
}

// LowStockAlert renders the admin mail listing products running out.
func LowStockAlert(lang language.Tag, shopName, currency string, products []domain.Product) (subject, body string) {
	subject = shopName + " - stock faible"
	var b strings.Builder
	b.WriteString("<ul>")
	for _, p := range products {
		fmt.Fprintf(&b, "<li>%s : %d en stock (%s)</li>",
			html.EscapeString(p.Name), p.Stock, FormatAmount(lang, p.Price, currency))
	}
	b.WriteString("</ul>")
	return subject, b.String()
}
