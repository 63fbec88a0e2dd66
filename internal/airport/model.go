// Package airport implements spec.md §3's Airport entity and the
// read-mostly AirportCatalog spec.md §4.7 folds into the shared
// GeoIndex: a text + 2dsphere lookup over a small, rarely-written
// collection.
package airport

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/ride"
)

type Type string

const (
	TypeLarge  Type = "large"
	TypeMedium Type = "medium"
	TypeSmall  Type = "small"
)

// Airport is spec.md §3's Airport entity.
type Airport struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IATACode   string             `bson:"iataCode" json:"iataCode"`
	ICAOCode   string             `bson:"icaoCode,omitempty" json:"icaoCode,omitempty"`
	City       string             `bson:"city" json:"city"`
	Country    string             `bson:"country" json:"country"`
	CountryCode string            `bson:"countryCode" json:"countryCode"`
	Location   ride.Point         `bson:"location" json:"location"`
	Type       Type               `bson:"type" json:"type"`
	Aliases    []string           `bson:"aliases,omitempty" json:"aliases,omitempty"`
	IsActive   bool               `bson:"isActive" json:"isActive"`
}

// SearchFilter is spec.md §6's GET /airports query.
type SearchFilter struct {
	Query        string
	Country      string
	PickupLon    *float64
	PickupLat    *float64
	RadiusMeters float64
}
