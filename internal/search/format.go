package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const noResultsMessage = "No fields found for your search. Try widening the distance or raising the price limit."

// Formatter renders an aggregated result as plain text for the chat
// transport. Slot start times arrive as HH:MM:SS wall times that the
// upstream reports against UTC; they are converted to the display zone.
type Formatter struct {
	displayZone *time.Location
}

func NewFormatter(displayZone *time.Location) *Formatter {
	if displayZone == nil {
		displayZone = time.UTC
	}
	return &Formatter{displayZone: displayZone}
}

// Format renders the result, one block per date. An empty result yields
// an explicit no-results message, never an empty string.
func (f *Formatter) Format(result *Result) string {
	if result.Empty() {
		return noResultsMessage
	}

	var b strings.Builder
	for _, day := range result.Days {
		fmt.Fprintf(&b, "Found fields for date: %s\n", day.Date.Format("2006-01-02"))

		for _, tenant := range day.Tenants {
			fmt.Fprintf(&b, "%s (%.1f km)\n", tenant.TenantName, tenant.DistanceKm)

			for _, field := range tenant.Fields {
				fmt.Fprintf(&b, "\tSlots for %s - %s\n", field.Resource.Name, field.Resource.ResourceType)

				for _, slot := range field.Slots {
					fmt.Fprintf(&b, "\t\tat %s duration: %d mins PRICE: %s\n",
						f.localStart(day.Date, slot.StartTime),
						slot.DurationMinutes,
						formatPrice(slot),
					)
				}
			}
		}

		b.WriteString("=======================================\n")
	}

	return b.String()
}

// localStart combines the slot's HH:MM:SS wall time with the result date
// as UTC and converts it to the display zone. Unparsable times are shown
// verbatim rather than dropped.
func (f *Formatter) localStart(date time.Time, startTime string) string {
	parsed, err := time.Parse("15:04:05", startTime)
	if err != nil {
		return startTime
	}

	utc := time.Date(date.Year(), date.Month(), date.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC)

	return utc.In(f.displayZone).Format("15:04")
}

func formatPrice(slot Slot) string {
	amount := strconv.FormatFloat(slot.PriceUnits, 'f', -1, 64)
	if slot.PriceCurrency == "" {
		return amount
	}
	return amount + " " + slot.PriceCurrency
}
