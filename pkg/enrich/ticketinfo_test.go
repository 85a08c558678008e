package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paid(display string, currency string, value int64, total, sold int) TicketClass {
	return TicketClass{
		OnSaleStatus:  OnSaleStatusAvailable,
		Cost:          &Cost{Display: display, Currency: currency, Value: value},
		QuantityTotal: total,
		QuantitySold:  sold,
	}
}

func TestDeriveTicketInfo_NoClasses(t *testing.T) {
	info := DeriveTicketInfo(nil, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 0.0, *info.BasePrice)
	assert.Equal(t, "USD", info.Currency)
	assert.Equal(t, 0, *info.AvailableCount)
	assert.Equal(t, 0, *info.TotalCount)
	assert.True(t, *info.IsFree)
	assert.Nil(t, info.UnavailableReason)
}

func TestDeriveTicketInfo_PriceFromDisplay(t *testing.T) {
	info := DeriveTicketInfo([]TicketClass{
		paid("$162.17 MXN", "", 0, 100, 20),
	}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 162.17, *info.BasePrice)
	assert.Equal(t, "MXN", info.Currency)
	assert.False(t, *info.IsFree)
}

func TestDeriveTicketInfo_PriceFromMinorUnits(t *testing.T) {
	info := DeriveTicketInfo([]TicketClass{
		paid("", "MXN", 16217, 100, 20),
	}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 162.17, *info.BasePrice)
	assert.Equal(t, "MXN", info.Currency)
}

func TestDeriveTicketInfo_FreeFlagWinsOverCost(t *testing.T) {
	info := DeriveTicketInfo([]TicketClass{
		{
			Free:          true,
			OnSaleStatus:  OnSaleStatusAvailable,
			Cost:          &Cost{Display: "$50.00 USD", Currency: "USD", Value: 5000},
			QuantityTotal: 10,
		},
	}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 0.0, *info.BasePrice)
	assert.True(t, *info.IsFree)
}

func TestDeriveTicketInfo_CheapestVisibleWins(t *testing.T) {
	info := DeriveTicketInfo([]TicketClass{
		paid("$40.00 USD", "USD", 4000, 50, 0),
		paid("$15.50 USD", "USD", 1550, 50, 0),
		paid("$99.00 USD", "USD", 9900, 50, 0),
	}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 15.50, *info.BasePrice)
	assert.Equal(t, 150, *info.TotalCount)
	assert.Equal(t, 150, *info.AvailableCount)
}

func TestDeriveTicketInfo_HiddenClassesExcluded(t *testing.T) {
	hidden := paid("$5.00 USD", "USD", 500, 10, 0)
	hidden.Hidden = true

	info := DeriveTicketInfo([]TicketClass{
		hidden,
		paid("$20.00 USD", "USD", 2000, 30, 5),
	}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 20.0, *info.BasePrice)
	// Total capacity counts every class, hidden included.
	assert.Equal(t, 40, *info.TotalCount)
}

func TestDeriveTicketInfo_AllHiddenFallsBackToAll(t *testing.T) {
	a := paid("$5.00 USD", "USD", 500, 10, 0)
	a.Hidden = true
	b := paid("$9.00 USD", "USD", 900, 10, 0)
	b.Hidden = true

	info := DeriveTicketInfo([]TicketClass{a, b}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 5.0, *info.BasePrice)
}

func TestDeriveTicketInfo_OnSalePreferredForPrice(t *testing.T) {
	soldOut := paid("$5.00 USD", "USD", 500, 10, 10)
	soldOut.OnSaleStatus = "SOLD_OUT"

	info := DeriveTicketInfo([]TicketClass{
		soldOut,
		paid("$30.00 USD", "USD", 3000, 20, 0),
	}, "USD")

	// The cheaper class is not on sale, so the on-sale class sets the price.
	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 30.0, *info.BasePrice)
	assert.Equal(t, 20, *info.AvailableCount)
	assert.Equal(t, 30, *info.TotalCount)
}

func TestDeriveTicketInfo_NoneOnSaleFallsBackForPriceAndAvailability(t *testing.T) {
	a := paid("$12.00 USD", "USD", 1200, 10, 4)
	a.OnSaleStatus = "NOT_YET_ON_SALE"
	b := paid("$25.00 USD", "USD", 2500, 20, 0)
	b.OnSaleStatus = "SOLD_OUT"

	info := DeriveTicketInfo([]TicketClass{a, b}, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 12.0, *info.BasePrice)
	// On-sale subset is empty, so availability recomputes over all classes.
	assert.Equal(t, 26, *info.AvailableCount)
	assert.Equal(t, 30, *info.TotalCount)
}

func TestDeriveTicketInfo_DoesNotReorderInput(t *testing.T) {
	// All hidden and none on sale, so both fallbacks alias the input slice.
	a := paid("$9.00 USD", "USD", 900, 10, 0)
	a.Hidden = true
	a.OnSaleStatus = "SOLD_OUT"
	b := paid("$5.00 USD", "USD", 500, 10, 0)
	b.Hidden = true
	b.OnSaleStatus = "SOLD_OUT"

	classes := []TicketClass{a, b}
	info := DeriveTicketInfo(classes, "USD")

	require.NotNil(t, info.BasePrice)
	assert.Equal(t, 5.0, *info.BasePrice)
	assert.Equal(t, "$9.00 USD", classes[0].Cost.Display, "input order must be preserved")
	assert.Equal(t, "$5.00 USD", classes[1].Cost.Display)
}

func TestDeriveTicketInfo_OversoldClampsToZero(t *testing.T) {
	info := DeriveTicketInfo([]TicketClass{
		paid("$10.00 USD", "USD", 1000, 10, 15),
		paid("$10.00 USD", "USD", 1000, 20, 5),
	}, "USD")

	require.NotNil(t, info.AvailableCount)
	assert.Equal(t, 15, *info.AvailableCount)
}

func TestParseDisplayPrice(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    float64
		ok      bool
	}{
		{name: "dollar prefix with code", display: "$162.17 MXN", want: 162.17, ok: true},
		{name: "plain number", display: "25.00", want: 25.0, ok: true},
		{name: "thousands separator", display: "$1,250.50 USD", want: 1250.50, ok: true},
		{name: "empty", display: "", ok: false},
		{name: "no digits", display: "Free!", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDisplayPrice(tt.display)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCurrencyFromDisplay(t *testing.T) {
	assert.Equal(t, "MXN", currencyFromDisplay("$162.17 MXN"))
	assert.Equal(t, "", currencyFromDisplay("$162.17"))
	assert.Equal(t, "", currencyFromDisplay(""))
}
