// Package normalize maps heterogeneous raw listings into the canonical
// row schema. The search API does not guarantee which key a given
// attribute appears under, so every logical attribute is resolved through
// an ordered list of candidate field paths: first present, non-null value
// wins. The table below is the complete mapping and is what makes the
// schema reconciliation auditable.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"passportwatch/internal/format"
	"passportwatch/internal/models"
)

// fieldPath addresses one candidate location of an attribute, e.g.
// {"build", "trim"} for the trim nested in the build sub-object.
type fieldPath []string

var (
	yearPaths     = []fieldPath{{"year"}, {"build", "year"}}
	pricePaths    = []fieldPath{{"price"}, {"current_price"}}
	milesPaths    = []fieldPath{{"miles"}, {"odometer"}}
	trimPaths     = []fieldPath{{"build", "trim"}}
	bodyPaths     = []fieldPath{{"build", "body_type"}}
	extColorPaths = []fieldPath{{"exterior_color"}, {"build", "exterior_color"}}
	intColorPaths = []fieldPath{{"interior_color"}, {"build", "interior_color"}}

	dealerNamePaths  = []fieldPath{{"dealer", "name"}}
	dealerCityPaths  = []fieldPath{{"dealer", "city"}}
	dealerStatePaths = []fieldPath{{"dealer", "state"}}
	dealerPhonePaths = []fieldPath{{"dealer", "phone"}}

	urlPaths      = []fieldPath{{"vdp_url"}, {"deep_link"}, {"url"}}
	vinPaths      = []fieldPath{{"vin"}}
	sourceIDPaths = []fieldPath{{"id"}, {"listing_id"}}
	postalPaths   = []fieldPath{{"zip"}, {"postal"}}
)

// lookup walks the candidate paths in order and returns the first present,
// non-nil value.
func lookup(raw models.RawListing, paths []fieldPath) (interface{}, bool) {
	for _, path := range paths {
		var current interface{} = map[string]interface{}(raw)
		found := true
		for _, key := range path {
			obj, ok := current.(map[string]interface{})
			if !ok {
				found = false
				break
			}
			current, ok = obj[key]
			if !ok || current == nil {
				found = false
				break
			}
		}
		if found {
			return current, true
		}
	}
	return nil, false
}

// asNumber coerces the loosely typed values the API mixes freely: JSON
// numbers decode as float64, but prices occasionally arrive as strings.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asString renders a resolved value for a free-text field. Numeric IDs are
// rendered without a fractional part.
func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func stringField(raw models.RawListing, paths []fieldPath) string {
	v, ok := lookup(raw, paths)
	if !ok {
		return ""
	}
	return asString(v)
}

func numberField(raw models.RawListing, paths []fieldPath) *float64 {
	v, ok := lookup(raw, paths)
	if !ok {
		return nil
	}
	n, ok := asNumber(v)
	if !ok {
		return nil
	}
	return &n
}

// Row flattens a raw listing into the canonical display row. It is total:
// any subset of fields, including none at all, produces a complete row
// with the type-appropriate absence markers.
func Row(raw models.RawListing) models.CanonicalRow {
	year := ""
	if y, ok := Year(raw); ok {
		year = strconv.Itoa(y)
	}

	return models.CanonicalRow{
		Year:        year,
		Price:       format.FormatCurrency(Price(raw)),
		Kilometers:  format.FormatKilometers(Miles(raw)),
		Trim:        Trim(raw),
		BodyType:    stringField(raw, bodyPaths),
		ExtColor:    stringField(raw, extColorPaths),
		IntColor:    stringField(raw, intColorPaths),
		DealerName:  stringField(raw, dealerNamePaths),
		DealerCity:  stringField(raw, dealerCityPaths),
		DealerState: stringField(raw, dealerStatePaths),
		DealerPhone: stringField(raw, dealerPhonePaths),
		URL:         stringField(raw, urlPaths),
	}
}

// Year resolves the model year as an integer.
func Year(raw models.RawListing) (int, bool) {
	n := numberField(raw, yearPaths)
	if n == nil {
		return 0, false
	}
	return int(*n), true
}

// Price resolves the asking price in source currency units.
func Price(raw models.RawListing) *float64 {
	return numberField(raw, pricePaths)
}

// Miles resolves the odometer reading in miles.
func Miles(raw models.RawListing) *float64 {
	return numberField(raw, milesPaths)
}

// Trim resolves the trim level. The exclusion filter matches against this.
func Trim(raw models.RawListing) string {
	return stringField(raw, trimPaths)
}

// VIN resolves the vehicle identification number, if the source carries it.
func VIN(raw models.RawListing) string {
	return stringField(raw, vinPaths)
}

// SourceID resolves the source-assigned listing identifier.
func SourceID(raw models.RawListing) string {
	return stringField(raw, sourceIDPaths)
}

// Postal resolves the listing postal code.
func Postal(raw models.RawListing) string {
	return stringField(raw, postalPaths)
}
