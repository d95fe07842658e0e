// Package format converts raw numeric listing fields into display strings
// and canonical units. All functions are pure and total: any absent or
// non-numeric input degrades to the "N/A" marker instead of failing.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MilesToKm is the mile-to-kilometer conversion factor. The search API
// reports mileage in miles regardless of the search country.
const MilesToKm = 1.60934

// NotAvailable marks a numeric-derived field the source record omitted.
const NotAvailable = "N/A"

// printer groups thousands with commas independent of process locale.
var printer = message.NewPrinter(language.English)

// FormatCurrency renders a price as a thousands-grouped dollar amount with
// no decimal places, e.g. 38999.5 -> "$39,000".
func FormatCurrency(value *float64) string {
	if value == nil {
		return NotAvailable
	}
	return printer.Sprintf("$%d", int64(math.Round(*value)))
}

// ToKilometers converts miles to whole kilometers, truncating toward zero.
// Both the display path and the persistence path must go through this
// function so a shown value never disagrees with a stored one.
func ToKilometers(miles *float64) *int {
	if miles == nil {
		return nil
	}
	km := int(*miles * MilesToKm)
	return &km
}

// FormatKilometers renders a mileage (in miles) as a thousands-grouped
// kilometer string, e.g. 12000 -> "19,312 km".
func FormatKilometers(miles *float64) string {
	km := ToKilometers(miles)
	if km == nil {
		return NotAvailable
	}
	return printer.Sprintf("%d km", *km)
}
