package offers

import (
	"bytes"
	"time"

	"github.com/Sallahudin001/proposal-engine/internal/pricing"
)

// Offer type discriminators carried by the flat offer feed.
const (
	TypeSpecialOffer = "special_offer"
	TypeBundleRule   = "bundle_rule"
)

// Numeric holds a numeric field that upstream storage may supply either as a
// JSON number or as a quoted string. Parsing happens at the adapter boundary.
type Numeric string

// UnmarshalJSON accepts both quoted and bare numeric tokens.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = ""
		return nil
	}
	trimmed = bytes.Trim(trimmed, `"`)
	*n = Numeric(trimmed)
	return nil
}

// RawOffer is a single record from the per-proposal offer feed before the
// discriminator has been applied.
type RawOffer struct {
	OfferID            string  `json:"offer_id"`
	OfferType          string  `json:"offer_type"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Category           string  `json:"category"`
	DiscountAmount     Numeric `json:"discount_amount"`
	DiscountPercentage Numeric `json:"discount_percentage"`
	FreeItem           string  `json:"free_item"`
	ExpirationDate     string  `json:"expiration_date"`
	BonusMessage       string  `json:"bonus_message"`
}

// RawUpsell is a record from the general lifestyle-upsell feed.
type RawUpsell struct {
	ID                string  `json:"id"`
	ProductSuggestion string  `json:"product_suggestion"`
	Category          string  `json:"category"`
	BasePrice         Numeric `json:"base_price"`
	MonthlyImpact     Numeric `json:"monthly_impact"`
	Description       string  `json:"description"`
	IsActive          bool    `json:"is_active"`
}

// SpecialOffer is a time-limited, rep-selectable promotional discount or free
// item. Exactly one of DiscountAmount, DiscountPctBps or FreeItem is set.
type SpecialOffer struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	DiscountAmount Money      `json:"discountAmount"`
	DiscountPctBps int32      `json:"discountPctBps"`
	FreeItem       string     `json:"freeItem,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the offer's deadline has passed at the given instant.
func (o SpecialOffer) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !o.ExpiresAt.After(now)
}

// BundleRule is an automatic discount triggered server-side by combining
// services. It is never user-toggleable; once present in the catalog for a
// proposal it is considered active.
type BundleRule struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DiscountValue Money  `json:"discountValue"`
	FreeService   string `json:"freeService,omitempty"`
	BonusMessage  string `json:"bonusMessage"`
}

// LifestyleUpsell behaves like an addon but is sourced from a general catalog
// rather than a per-service one.
type LifestyleUpsell struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	BasePrice     Money  `json:"basePrice"`
	MonthlyImpact Money  `json:"monthlyImpact"`
}

// Catalog groups the typed collections produced by normalization. It is a
// read-only snapshot per proposal load.
type Catalog struct {
	Special []SpecialOffer    `json:"special"`
	Bundles []BundleRule      `json:"bundles"`
	Upsells []LifestyleUpsell `json:"upsells"`
}

// Money aliases the engine-wide monetary representation.
type Money = pricing.Money
