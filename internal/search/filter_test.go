package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainelz/booko/internal/playtomic"
)

func TestFilterFields_PriceLimit(t *testing.T) {
	fields := []playtomic.AvailabilityResource{
		{
			ResourceID: "r-1",
			Slots: []playtomic.Slot{
				{StartTime: "10:00:00", Duration: 60, Price: "20 EUR"},
				{StartTime: "11:00:00", Duration: 60, Price: "35 EUR"},
				{StartTime: "12:00:00", Duration: 90, Price: "30 EUR"},
			},
		},
	}

	out := FilterFields(fields, 30)
	require.Len(t, out, 1)
	require.Len(t, out[0].Slots, 2)

	for _, slot := range out[0].Slots {
		assert.LessOrEqual(t, slot.PriceUnits, 30.0)
		assert.Equal(t, "EUR", slot.PriceCurrency)
	}
}

func TestFilterFields_EmptyFieldsAreDropped(t *testing.T) {
	fields := []playtomic.AvailabilityResource{
		{
			ResourceID: "pricey",
			Slots:      []playtomic.Slot{{StartTime: "10:00:00", Duration: 60, Price: "99 EUR"}},
		},
		{
			ResourceID: "cheap",
			Slots:      []playtomic.Slot{{StartTime: "10:00:00", Duration: 60, Price: "10 EUR"}},
		},
		{
			ResourceID: "no-slots",
		},
	}

	out := FilterFields(fields, 30)
	require.Len(t, out, 1)
	assert.Equal(t, "cheap", out[0].ResourceID)
}

func TestFilterFields_UnparsablePriceDropsSlot(t *testing.T) {
	fields := []playtomic.AvailabilityResource{
		{
			ResourceID: "r-1",
			Slots: []playtomic.Slot{
				{StartTime: "10:00:00", Duration: 60, Price: "???"},
				{StartTime: "11:00:00", Duration: 60, Price: ""},
				{StartTime: "12:00:00", Duration: 60, Price: "25 EUR"},
			},
		},
	}

	out := FilterFields(fields, 30)
	require.Len(t, out, 1)
	require.Len(t, out[0].Slots, 1)
	assert.Equal(t, "12:00:00", out[0].Slots[0].StartTime)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		amount   float64
		currency string
		wantErr  bool
	}{
		{name: "suffix with space", in: "22 EUR", amount: 22, currency: "EUR"},
		{name: "suffix without space", in: "30EUR", amount: 30, currency: "EUR"},
		{name: "prefix", in: "EUR 22.5", amount: 22.5, currency: "EUR"},
		{name: "lowercase currency", in: "18 eur", amount: 18, currency: "EUR"},
		{name: "bare number", in: "15", amount: 15, currency: ""},
		{name: "empty", in: "", wantErr: true},
		{name: "no digits", in: "EUR", wantErr: true},
		{name: "garbage", in: "1-2 EUR", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency, err := parsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.amount, amount)
			assert.Equal(t, tt.currency, currency)
		})
	}
}
