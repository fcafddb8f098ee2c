// Package checkout builds WhatsApp order links.
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dearher/bagstore/internal/domain/cart"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultPhone     = "923141181535"
	DefaultStoreName = "Dear Her"

	closing = "Please confirm availability and delivery details. Thank you! 💕"
)

// Selection is a single product the visitor wants to order directly.
type Selection struct {
	ProductName string
	Price       int
	Color       string
	Size        string
	ProductURL  string
	ImageURL    string
}

type Builder struct {
	phone     string
	storeName string
}

// NewBuilder falls back to the shop's default number and name when either is blank.
func NewBuilder(phone, storeName string) *Builder {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if phone == "" {
		phone = DefaultPhone
	}
	storeName = strings.TrimSpace(storeName)
	if storeName == "" {
		storeName = DefaultStoreName
	}
	return &Builder{phone: phone, storeName: storeName}
}

func (b *Builder) Phone() string {
	return b.phone
}

// SingleItemMessage is the order text for one product.
func (b *Builder) SingleItemMessage(sel Selection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi, I'd like to order this bag from %s 🎀\n\n", b.storeName)
	fmt.Fprintf(&sb, "🛍 Product: %s\n", sel.ProductName)
	fmt.Fprintf(&sb, "💰 Price: %s\n", FormatPrice(sel.Price))
	if sel.Color != "" {
		fmt.Fprintf(&sb, "🎨 Color: %s\n", sel.Color)
	}
	if sel.Size != "" {
		fmt.Fprintf(&sb, "📐 Size: %s\n", sel.Size)
	}
	fmt.Fprintf(&sb, "\n🔗 Link: %s\n", sel.ProductURL)
	if sel.ImageURL != "" {
		fmt.Fprintf(&sb, "📸 Image: %s\n", sel.ImageURL)
	}
	sb.WriteString("\n" + closing)
	return sb.String()
}

// CartMessage enumerates lines in cart order. An empty cart still yields
// the greeting and a zero total; callers decide whether to offer checkout.
func (b *Builder) CartMessage(lines []cart.Line) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi, I'd like to order these bags from %s 🎀\n\n", b.storeName)

	total := 0
	for i, l := range lines {
		fmt.Fprintf(&sb, "%d. %s", i+1, l.Name)
		if l.Color != "" {
			fmt.Fprintf(&sb, " (%s)", l.Color)
		}
		fmt.Fprintf(&sb, " — %s x %d\n", FormatPrice(l.Price), l.Quantity)
		total += l.Subtotal()
	}

	fmt.Fprintf(&sb, "\n💰 Total: %s\n", FormatPrice(total))
	sb.WriteString("\n" + closing)
	return sb.String()
}

// Link wraps msg in a wa.me deep link.
func (b *Builder) Link(msg string) string {
	return "https://wa.me/" + b.phone + "?text=" + EncodeComponent(msg)
}

func (b *Builder) SingleItemLink(sel Selection) string {
	return b.Link(b.SingleItemMessage(sel))
}

func (b *Builder) CartLink(lines []cart.Line) string {
	return b.Link(b.CartMessage(lines))
}

// FormatPrice renders whole rupees with thousands grouping: "Rs. 2,500".
func FormatPrice(amount int) string {
	return message.NewPrinter(language.English).Sprintf("Rs. %d", amount)
}

// QueryEscape escapes a few characters that URI components leave as is.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s as a URI component (spaces as %20).
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
