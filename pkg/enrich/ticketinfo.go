package enrich

import (
	"sort"
	"strconv"
	"strings"
)

// OnSaleStatusAvailable is the upstream sale-status value for a ticket class
// that is currently purchasable.
const OnSaleStatusAvailable = "AVAILABLE"

// TicketInfo is the pricing/availability summary attached to an event as
// "ticket_info". Null numeric fields signal that enrichment failed for this
// entity; that is a representable degraded state, not an error.
type TicketInfo struct {
	BasePrice         *float64 `json:"base_price"`
	Currency          string   `json:"currency"`
	AvailableCount    *int     `json:"available_count"`
	TotalCount        *int     `json:"total_count"`
	IsFree            *bool    `json:"is_free"`
	UnavailableReason *string  `json:"unavailable_reason"`
}

// TicketClass is one sub-item of the upstream ticket-classes payload.
type TicketClass struct {
	Hidden        bool   `json:"hidden"`
	Free          bool   `json:"free"`
	OnSaleStatus  string `json:"on_sale_status"`
	Cost          *Cost  `json:"cost"`
	QuantityTotal int    `json:"quantity_total"`
	QuantitySold  int    `json:"quantity_sold"`
}

// Cost is the upstream price of a ticket class, expressed either as a
// formatted display string or a minor-unit integer value.
type Cost struct {
	Display  string `json:"display"`
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// DeriveTicketInfo computes the TicketInfo summary from a list of ticket
// classes.
//
// Price determination falls back in order: on-sale subset, visible subset,
// all classes. Availability sums the on-sale subset and falls back to all
// classes only when the on-sale subset was empty and summed to zero. Total
// capacity always sums every class.
func DeriveTicketInfo(classes []TicketClass, defaultCurrency string) TicketInfo {
	if len(classes) == 0 {
		return TicketInfo{
			BasePrice:      ptr(0.0),
			Currency:       defaultCurrency,
			AvailableCount: ptr(0),
			TotalCount:     ptr(0),
			IsFree:         ptr(true),
		}
	}

	visible := filterClasses(classes, func(tc TicketClass) bool { return !tc.Hidden })
	if len(visible) == 0 {
		visible = classes
	}

	onSale := filterClasses(visible, func(tc TicketClass) bool {
		return tc.OnSaleStatus == OnSaleStatusAvailable
	})

	priceSet := onSale
	usedFallback := false
	if len(priceSet) == 0 {
		priceSet = visible
		usedFallback = true
	}

	// priceSet can alias the caller's slice through the fallbacks; sort a
	// copy so the input order is left untouched.
	priceSet = append([]TicketClass(nil), priceSet...)
	sort.SliceStable(priceSet, func(i, j int) bool {
		return resolvePrice(priceSet[i]) < resolvePrice(priceSet[j])
	})

	cheapest := priceSet[0]
	basePrice := resolvePrice(cheapest)
	currency := resolveCurrency(cheapest, defaultCurrency)
	isFree := basePrice == 0 || cheapest.Free

	available := sumAvailable(onSale)
	if available == 0 && usedFallback {
		available = sumAvailable(classes)
	}

	total := 0
	for _, tc := range classes {
		total += tc.QuantityTotal
	}

	return TicketInfo{
		BasePrice:      &basePrice,
		Currency:       currency,
		AvailableCount: &available,
		TotalCount:     &total,
		IsFree:         &isFree,
	}
}

// degradedTicketInfo is the sentinel attached when enrichment failed for an
// entity. All numeric fields are null and the reason marks the failure.
func degradedTicketInfo(defaultCurrency, reason string) TicketInfo {
	return TicketInfo{
		Currency:          defaultCurrency,
		UnavailableReason: &reason,
	}
}

// resolvePrice extracts the price of a ticket class. A class flagged free is
// 0 regardless of any cost field. Otherwise the formatted display string is
// parsed first, falling back to the raw minor-unit value divided by 100.
func resolvePrice(tc TicketClass) float64 {
	if tc.Free {
		return 0
	}
	if tc.Cost == nil {
		return 0
	}

	if price, ok := parseDisplayPrice(tc.Cost.Display); ok {
		return price
	}
	return float64(tc.Cost.Value) / 100
}

// parseDisplayPrice strips non-numeric formatting from a display string like
// "$162.17 MXN" and parses the remainder as a decimal.
func parseDisplayPrice(display string) (float64, bool) {
	if display == "" {
		return 0, false
	}

	var b strings.Builder
	for _, r := range display {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}

	price, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// resolveCurrency prefers the explicit cost currency, then a trailing
// currency code in the display string, then the configured default.
func resolveCurrency(tc TicketClass, defaultCurrency string) string {
	if tc.Cost == nil {
		return defaultCurrency
	}
	if tc.Cost.Currency != "" {
		return tc.Cost.Currency
	}
	if code := currencyFromDisplay(tc.Cost.Display); code != "" {
		return code
	}
	return defaultCurrency
}

// currencyFromDisplay extracts a trailing alphabetic currency code from a
// display string like "$162.17 MXN".
func currencyFromDisplay(display string) string {
	fields := strings.Fields(display)
	if len(fields) == 0 {
		return ""
	}

	last := fields[len(fields)-1]
	for _, r := range last {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return last
}

// sumAvailable totals the remaining capacity across classes, clamping each
// class at zero.
func sumAvailable(classes []TicketClass) int {
	sum := 0
	for _, tc := range classes {
		remaining := tc.QuantityTotal - tc.QuantitySold
		if remaining > 0 {
			sum += remaining
		}
	}
	return sum
}

// filterClasses returns the classes matching keep, without mutating input.
func filterClasses(classes []TicketClass, keep func(TicketClass) bool) []TicketClass {
	out := make([]TicketClass, 0, len(classes))
	for _, tc := range classes {
		if keep(tc) {
			out = append(out, tc)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
