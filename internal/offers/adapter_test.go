package offers

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeSplitsByType(t *testing.T) {
	raws := []RawOffer{
		{OfferID: "o1", OfferType: "special_offer", Name: "Spring Promo", DiscountAmount: "500"},
		{OfferID: "b1", OfferType: "bundle_rule", Name: "Roof+HVAC", DiscountAmount: "750"},
		{OfferID: "x1", OfferType: "mystery", Name: "Unknown"},
	}
	cat := Normalize(raws, nil, []string{"roofing", "hvac"})
	if len(cat.Special) != 1 || len(cat.Bundles) != 1 {
		t.Fatalf("expected 1 special and 1 bundle, got %d and %d", len(cat.Special), len(cat.Bundles))
	}
	if cat.Special[0].DiscountAmount != 500_00 {
		t.Fatalf("expected 50000 cents, got %d", cat.Special[0].DiscountAmount)
	}
}

func TestNormalizeParsesStringNumericsDefensively(t *testing.T) {
	raws := []RawOffer{
		{OfferID: "o1", OfferType: "special_offer", DiscountAmount: "not-a-number"},
		{OfferID: "o2", OfferType: "special_offer", DiscountPercentage: "10"},
	}
	cat := Normalize(raws, nil, nil)
	if cat.Special[0].DiscountAmount != 0 || cat.Special[0].DiscountPctBps != 0 {
		t.Fatalf("unparseable numerics must default to zero: %+v", cat.Special[0])
	}
	if cat.Special[1].DiscountPctBps != 1000 {
		t.Fatalf("expected 1000 bps, got %d", cat.Special[1].DiscountPctBps)
	}
}

func TestNumericAcceptsBothJSONShapes(t *testing.T) {
	var raw RawOffer
	payload := `{"offer_id":"o1","offer_type":"special_offer","discount_amount":250.50,"discount_percentage":"7.5"}`
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := ParseCents(raw.DiscountAmount); got != 250_50 {
		t.Fatalf("expected 25050, got %d", got)
	}
	if got := ParsePercentBps(raw.DiscountPercentage); got != 750 {
		t.Fatalf("expected 750 bps, got %d", got)
	}
}

func TestBundleBonusMessageSynthesis(t *testing.T) {
	raws := []RawOffer{{OfferID: "b1", OfferType: "bundle_rule", DiscountAmount: "500"}}
	cat := Normalize(raws, nil, []string{"roofing", "windows-doors", "paint"})
	want := "Bundle Bonus Applied: $500 off for combining roofing + windows-doors + paint"
	if cat.Bundles[0].BonusMessage != want {
		t.Fatalf("expected %q, got %q", want, cat.Bundles[0].BonusMessage)
	}

	// A verbatim message from the feed is kept untouched.
	raws[0].BonusMessage = "Combo deal!"
	cat = Normalize(raws, nil, []string{"roofing"})
	if cat.Bundles[0].BonusMessage != "Combo deal!" {
		t.Fatalf("expected verbatim message, got %q", cat.Bundles[0].BonusMessage)
	}
}

func TestNormalizeSkipsInactiveUpsells(t *testing.T) {
	upsells := []RawUpsell{
		{ID: "u1", ProductSuggestion: "Smart Thermostat", BasePrice: "299.99", IsActive: true},
		{ID: "u2", ProductSuggestion: "Retired Gadget", BasePrice: "100", IsActive: false},
	}
	cat := Normalize(nil, upsells, nil)
	if len(cat.Upsells) != 1 {
		t.Fatalf("expected 1 active upsell, got %d", len(cat.Upsells))
	}
	if cat.Upsells[0].BasePrice != 299_99 {
		t.Fatalf("expected 29999, got %d", cat.Upsells[0].BasePrice)
	}
}

func TestSavings(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	selected := []SpecialOffer{
		{ID: "flat", DiscountAmount: 500_00, ExpiresAt: &future},
		{ID: "pct", DiscountPctBps: 1000},
		{ID: "free", FreeItem: "Gutter guards"},
		{ID: "dead", DiscountAmount: 999_00, ExpiresAt: &past},
	}
	// Flat $500 + 10% of $10,000; the free item and the expired offer add nothing.
	if got := Savings(selected, 10_000_00, now); got != 1_500_00 {
		t.Fatalf("expected 150000, got %d", got)
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[Money]string{
		500_00:      "$500",
		1_234_56:    "$1,234.56",
		1_000_000_0: "$100,000",
	}
	for amount, want := range cases {
		if got := FormatUSD(amount); got != want {
			t.Fatalf("FormatUSD(%d): expected %q, got %q", amount, want, got)
		}
	}
}
