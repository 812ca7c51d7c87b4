package market

import (
	"fmt"
	"strings"

	"coinbot/pkg/tgui"
)

// ErrorNotice is the user-visible text sent when the data provider fails.
// Diagnostic detail goes to logs only.
func ErrorNotice() string {
	return tgui.B("⚠️error; Please, contact developer").String()
}

// ListingHeader is the first line of every ranked listing message.
func ListingHeader() tgui.H {
	return tgui.JoinH(" - ", tgui.B("Coin"), tgui.B("Price"))
}

// FormatListing renders a ranked listing as Telegram HTML: header, then one
// "SYM - $price" code line per coin, price fixed to 2 decimals.
// Pure function; provider order is preserved.
func FormatListing(coins []Coin, header tgui.H) string {
	var b strings.Builder
	b.WriteString(header.String())
	for _, c := range coins {
		b.WriteString("\n")
		b.WriteString(tgui.Codef("%s - $%.2f", c.Symbol, c.PriceUSD).String())
	}
	return b.String()
}

// FormatSchedule renders delivery hours as one "H:00" line per hour.
func FormatSchedule(hours []int) string {
	var b strings.Builder
	for i, h := range hours {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d:00", h)
	}
	return b.String()
}
