package domain

import "time"

type Category string

const (
	CategoryFood      Category = "food"
	CategoryLivestock Category = "livestock"
	CategoryTools     Category = "tools"
	CategoryServices  Category = "services"
	CategoryHerbs     Category = "herbs"
	CategoryCrafts    Category = "crafts"
	CategoryOther     Category = "other"
)

var categories = map[Category]bool{
	CategoryFood:      true,
	CategoryLivestock: true,
	CategoryTools:     true,
	CategoryServices:  true,
	CategoryHerbs:     true,
	CategoryCrafts:    true,
	CategoryOther:     true,
}

// Valid reports whether c is one of the known category tags.
func (c Category) Valid() bool {
	return categories[c]
}

// Categories returns the known category tags in display order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryLivestock, CategoryTools, CategoryServices,
		CategoryHerbs, CategoryCrafts, CategoryOther,
	}
}

type ContactMethod string

const (
	ContactPhone    ContactMethod = "phone"
	ContactSMS      ContactMethod = "sms"
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactEmail    ContactMethod = "email"
	ContactInPerson ContactMethod = "in_person"
)

func (m ContactMethod) Valid() bool {
	switch m {
	case ContactPhone, ContactSMS, ContactWhatsApp, ContactEmail, ContactInPerson:
		return true
	}
	return false
}

// Source tags where a coordinate came from.
type Source string

const (
	SourceGPS       Source = "gps"
	SourceLastKnown Source = "last_known"
	SourceManual    Source = "manual"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Accuracy  float64 `json:"accuracy" bson:"accuracy"`
}

// Valid reports whether the pair lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180 &&
		c.Accuracy >= 0
}

// Location is where a listing can be found. Either Coordinates or place text
// (Landmark / AreaName) may be set, or both.
type Location struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Source      Source       `json:"source,omitempty"`
	Landmark    string       `json:"landmark,omitempty"`
	AreaName    string       `json:"areaName,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

func (l *Location) HasCoordinates() bool {
	return l != nil && l.Coordinates != nil
}

// PlaceText is the human description shown instead of a distance figure.
func (l *Location) PlaceText() string {
	if l == nil {
		return ""
	}
	switch {
	case l.Landmark != "" && l.AreaName != "":
		return l.Landmark + ", " + l.AreaName
	case l.Landmark != "":
		return l.Landmark
	default:
		return l.AreaName
	}
}

// IsEmpty reports whether the location carries neither coordinates nor place text.
func (l *Location) IsEmpty() bool {
	return l == nil || (l.Coordinates == nil && l.Landmark == "" && l.AreaName == "")
}

type Listing struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Category      Category      `json:"category"`
	Description   string        `json:"description"`
	Price         string        `json:"price,omitempty"`
	SellerName    string        `json:"sellerName"`
	ContactMethod ContactMethod `json:"contactMethod,omitempty"`
	ContactDetail string        `json:"contactDetail,omitempty"`
	Location      *Location     `json:"location,omitempty"`
	ImageData     []byte        `json:"imageData,omitempty"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastModified  time.Time     `json:"lastModified"`
	PostedOffline bool          `json:"postedOffline"`
	Synced        bool          `json:"synced"`
	Views         int           `json:"views"`
}

// Clone returns a deep copy so callers never share mutable state with the store.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	if l.Location != nil {
		loc := *l.Location
		if l.Location.Coordinates != nil {
			coords := *l.Location.Coordinates
			loc.Coordinates = &coords
		}
		c.Location = &loc
	}
	if l.ImageData != nil {
		c.ImageData = append([]byte(nil), l.ImageData...)
	}
	return &c
}

// DeviceLocation is a point estimate of the current user's position.
type DeviceLocation struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Source     Source    `json:"source"`
	CapturedAt time.Time `json:"capturedAt"`
}

func (d *DeviceLocation) Coordinates() Coordinates {
	return Coordinates{Latitude: d.Latitude, Longitude: d.Longitude, Accuracy: d.Accuracy}
}

// AsLocation converts a device fix into a listing location tagged with its provenance.
func (d *DeviceLocation) AsLocation() *Location {
	if d == nil {
		return nil
	}
	coords := d.Coordinates()
	return &Location{Coordinates: &coords, Source: d.Source}
}

// Filter narrows the ranked view.
type Filter struct {
	Category      Category
	Query         string
	FavoritesOnly bool
	SellerName    string
	MaxDistanceKm float64
}

// StoreStatus describes the persistence state of the listing collection.
type StoreStatus struct {
	Backend   string `json:"backend"`
	Degraded  bool   `json:"degraded"`
	Count     int    `json:"count"`
	LastError string `json:"lastError,omitempty"`
}
