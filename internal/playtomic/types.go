package playtomic

// Tenant is a venue record as returned by the directory endpoint.
type Tenant struct {
	TenantID   string     `json:"tenant_id"`
	TenantName string     `json:"tenant_name"`
	Address    Address    `json:"address"`
	Resources  []Resource `json:"resources"`
}

type Address struct {
	Street   string     `json:"street"`
	City     string     `json:"city"`
	Country  string     `json:"country"`
	Zip      string     `json:"postal_code"`
	Coord    Coordinate `json:"coordinate"`
	TimeZone string     `json:"timezone"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Resource is one bookable field belonging to a tenant.
type Resource struct {
	ResourceID string             `json:"resource_id"`
	Name       string             `json:"name"`
	Properties ResourceProperties `json:"properties"`
}

type ResourceProperties struct {
	ResourceType    string `json:"resource_type"`    // "indoor" or "outdoor"
	ResourceSize    string `json:"resource_size"`    // "single" or "double"
	ResourceFeature string `json:"resource_feature"` // "panoramic", etc.
}

// AvailabilityResource carries the raw slots of one field for one date.
type AvailabilityResource struct {
	ResourceID string `json:"resource_id"`
	StartDate  string `json:"start_date"`
	Slots      []Slot `json:"slots"`
}

// Slot is a bookable interval. StartTime is a local HH:MM:SS wall time,
// Duration is in minutes and Price embeds the currency, e.g. "22 EUR".
type Slot struct {
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Price     string `json:"price"`
}
