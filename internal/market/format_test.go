package market

import (
	"testing"

	"coinbot/pkg/tgui"
)

func TestFormatListingDeterministic(t *testing.T) {
	coins := []Coin{
		{Symbol: "BTC", PriceUSD: 65000},
		{Symbol: "ETH", PriceUSD: 3200.5},
		{Symbol: "XRP", PriceUSD: 0.52},
	}
	got := FormatListing(coins, ListingHeader())
	want := "<b>Coin</b> - <b>Price</b>" +
		"\n<code>BTC - $65000.00</code>" +
		"\n<code>ETH - $3200.50</code>" +
		"\n<code>XRP - $0.52</code>"
	if got != want {
		t.Fatalf("FormatListing:\n got %q\nwant %q", got, want)
	}
}

func TestFormatListingEmpty(t *testing.T) {
	got := FormatListing(nil, tgui.B("Header"))
	if got != "<b>Header</b>" {
		t.Fatalf("empty listing = %q", got)
	}
}

func TestFormatSchedule(t *testing.T) {
	got := FormatSchedule([]int{0, 8, 12, 18})
	want := "0:00\n8:00\n12:00\n18:00"
	if got != want {
		t.Fatalf("FormatSchedule = %q, want %q", got, want)
	}
}
