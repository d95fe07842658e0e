package models

// RawListing is one listing exactly as the search API returned it. The API
// schema is not contractually fixed: any field may be missing, and most
// logical attributes can appear under more than one key, sometimes nested
// inside a "build" or "dealer" sub-object.
type RawListing map[string]interface{}

// CanonicalRow is the flat, display-oriented projection of a listing.
// Every field is always present: free-text fields fall back to "" and
// numeric-derived fields to "N/A" when the source record omits them.
type CanonicalRow struct {
	Year        string `json:"year"`
	Price       string `json:"price"`
	Kilometers  string `json:"km"`
	Trim        string `json:"trim"`
	BodyType    string `json:"body_type"`
	ExtColor    string `json:"ext_color"`
	IntColor    string `json:"int_color"`
	DealerName  string `json:"dealer_name"`
	DealerCity  string `json:"dealer_city"`
	DealerState string `json:"dealer_state"`
	DealerPhone string `json:"dealer_phone"`
	URL         string `json:"vdp_url"`
}

// PersistenceRow is the storage-oriented projection of a listing. It keeps
// raw numeric values instead of formatted strings so historical price and
// mileage trends stay queryable. The (VIN, SourceID, FetchedAt) triple is
// the natural key: repeated runs over the same physical listing upsert
// rather than duplicate.
type PersistenceRow struct {
	ID          uint     `json:"-" gorm:"primaryKey"`
	VIN         string   `json:"vin" gorm:"column:vin;uniqueIndex:idx_listing_identity"`
	SourceID    string   `json:"source_id" gorm:"column:source_id;uniqueIndex:idx_listing_identity"`
	ListingURL  string   `json:"listing_url"`
	Year        *int     `json:"year"`
	Price       *float64 `json:"price"`
	Kilometers  *int     `json:"km" gorm:"column:km"`
	Trim        string   `json:"trim"`
	Body        string   `json:"body"`
	Exterior    string   `json:"exterior"`
	Interior    string   `json:"interior"`
	DealerName  string   `json:"dealer_name"`
	DealerCity  string   `json:"dealer_city"`
	DealerState string   `json:"dealer_state"`
	Postal      string   `json:"postal"`
	Currency    string   `json:"currency"`
	FetchedAt   string   `json:"fetched_at" gorm:"column:fetched_at;uniqueIndex:idx_listing_identity"`
}

// TableName keeps the table name aligned with the original Supabase table.
func (PersistenceRow) TableName() string {
	return "passport_listings"
}

// ReportSnapshot is one run captured for offline inspection: what would be
// emailed and what would be stored, without touching either collaborator.
type ReportSnapshot struct {
	Date       string           `json:"date"`
	TotalFound int              `json:"total_found"`
	Count      int              `json:"count"`
	HTMLBody   string           `json:"html_body"`
	Rows       []PersistenceRow `json:"rows"`
}
