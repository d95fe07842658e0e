// Package report turns canonical rows into the two run artifacts: the
// HTML report body for email delivery and the persistence-row projection
// for historical storage.
package report

import (
	"bytes"
	"fmt"
	"html/template"

	"passportwatch/internal/format"
	"passportwatch/internal/models"
	"passportwatch/internal/normalize"
)

// tableTemplate renders the listings table. Dealer names, trims and colors
// are third-party content; html/template escapes them on the way in.
var tableTemplate = template.Must(template.New("table").Funcs(template.FuncMap{
	"location": dealerLocation,
}).Parse(`{{if not .Rows}}<p>No used {{.Vehicle}} listings ({{.MinYear}}+) found for today.</p>{{else}}<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse; font-family: Arial, sans-serif; font-size: 13px;">
  <thead>
    <tr style="background-color: #f0f0f0;">
      <th>Year</th>
      <th>Price</th>
      <th>KM</th>
      <th>Trim</th>
      <th>Body</th>
      <th>Exterior</th>
      <th>Interior</th>
      <th>Dealer</th>
      <th>Location</th>
      <th>Phone</th>
      <th>Link</th>
    </tr>
  </thead>
  <tbody>
{{range .Rows}}    <tr>
      <td>{{.Year}}</td>
      <td>{{.Price}}</td>
      <td>{{.Kilometers}}</td>
      <td>{{.Trim}}</td>
      <td>{{.BodyType}}</td>
      <td>{{.ExtColor}}</td>
      <td>{{.IntColor}}</td>
      <td>{{.DealerName}}</td>
      <td>{{location .}}</td>
      <td>{{.DealerPhone}}</td>
      <td>{{if .URL}}<a href="{{.URL}}" target="_blank">View</a>{{end}}</td>
    </tr>
{{end}}  </tbody>
</table>{{end}}`))

var bodyTemplate = template.Must(template.New("body").Parse(`<html>
  <body>
    <p>Daily used {{.Vehicle}} report (year &gt;= {{.MinYear}}).</p>
    <p>Date: {{.Date}}</p>
    <p>Total listings returned: {{.Count}} (of {{.TotalFound}} found)</p>
    {{.Table}}
    <p style="font-size: 11px; color: #666; margin-top: 16px;">
      Data source: MarketCheck Cars API.
    </p>
  </body>
</html>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<p>Error fetching data from MarketCheck: {{.}}</p>`))

// dealerLocation joins the dealer city and state, skipping empty parts.
func dealerLocation(row models.CanonicalRow) string {
	switch {
	case row.DealerCity != "" && row.DealerState != "":
		return row.DealerCity + ", " + row.DealerState
	case row.DealerCity != "":
		return row.DealerCity
	default:
		return row.DealerState
	}
}

// Renderer renders report artifacts for one target vehicle description.
type Renderer struct {
	vehicle string
	minYear int
}

// NewRenderer builds a renderer for the given make/model and minimum year.
func NewRenderer(carMake, carModel string, minYear int) *Renderer {
	return &Renderer{
		vehicle: carMake + " " + carModel,
		minYear: minYear,
	}
}

// RenderTable renders canonical rows as a self-contained HTML table. An
// empty input renders a "no listings" message instead of an empty shell.
func (r *Renderer) RenderTable(rows []models.CanonicalRow) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Vehicle string
		MinYear int
		Rows    []models.CanonicalRow
	}{r.vehicle, r.minYear, rows}

	if err := tableTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render listings table: %w", err)
	}
	return buf.String(), nil
}

// RenderBody wraps the table in the full report body.
func (r *Renderer) RenderBody(date, table string, count, totalFound int) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Vehicle           string
		MinYear           int
		Date              string
		Count, TotalFound int
		Table             template.HTML
	}{r.vehicle, r.minYear, date, count, totalFound, template.HTML(table)}

	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report body: %w", err)
	}
	return buf.String(), nil
}

// RenderError renders the body used when the fetch itself failed. The
// error text is escaped like any other untrusted content.
func (r *Renderer) RenderError(fetchErr error) string {
	var buf bytes.Buffer
	if err := errorTemplate.Execute(&buf, fetchErr.Error()); err != nil {
		return "<p>Error fetching data from MarketCheck.</p>"
	}
	return buf.String()
}

// ReportSubject is the delivery subject line for a successful run.
func (r *Renderer) ReportSubject(date string) string {
	return fmt.Sprintf("[Car Report] Used %s listings (%s)", r.vehicle, date)
}

// ErrorSubject is the delivery subject line for a failed fetch.
func (r *Renderer) ErrorSubject(date string) string {
	return fmt.Sprintf("[Car Report] ERROR fetching %s data (%s)", r.vehicle, date)
}

// ToPersistenceRows projects canonical rows plus their raw listings into
// storage rows, one output row per input row. rows and raws must be the
// index-aligned products of the same filtered listing sequence; the
// exclusion filter is the only intended drop point, so nothing is dropped
// here.
func ToPersistenceRows(rows []models.CanonicalRow, raws []models.RawListing, fetchedAt, currency string) []models.PersistenceRow {
	out := make([]models.PersistenceRow, 0, len(rows))
	for i, row := range rows {
		raw := raws[i]

		var year *int
		if y, ok := normalize.Year(raw); ok {
			year = &y
		}

		out = append(out, models.PersistenceRow{
			VIN:         normalize.VIN(raw),
			SourceID:    normalize.SourceID(raw),
			ListingURL:  row.URL,
			Year:        year,
			Price:       normalize.Price(raw),
			Kilometers:  format.ToKilometers(normalize.Miles(raw)),
			Trim:        row.Trim,
			Body:        row.BodyType,
			Exterior:    row.ExtColor,
			Interior:    row.IntColor,
			DealerName:  row.DealerName,
			DealerCity:  row.DealerCity,
			DealerState: row.DealerState,
			Postal:      normalize.Postal(raw),
			Currency:    currency,
			FetchedAt:   fetchedAt,
		})
	}
	return out
}
