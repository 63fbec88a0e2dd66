// Package ride owns the reservable resource of the marketplace: a
// driver's published seated trip, and the CapacityStore (spec.md
// §4.1) that guards its (seatsLeft, luggageLeft) pair against
// concurrent over-booking.
package ride

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Direction string

const (
	DirectionHomeToAirport Direction = "home->airport"
	DirectionAirportToHome Direction = "airport->home"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Point is a GeoJSON Point, the shape MongoDB's 2dsphere index
// expects, keyed [lon, lat] per the GeoJSON spec (not [lat, lon]).
type Point struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewPoint(lon, lat float64) Point {
	return Point{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (p Point) Lon() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p Point) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Home is the driver's pickup/dropoff address at the non-airport end
// of the trip.
type Home struct {
	Address string  `bson:"address,omitempty" json:"address,omitempty"`
	Postcode string `bson:"postcode" json:"postcode"`
	City     string `bson:"city" json:"city"`
	Lat      float64 `bson:"lat" json:"lat"`
	Lon      float64 `bson:"lon" json:"lon"`
}

// Ride is spec.md §3's driver-published trip. Route is kept as its
// own lazily-projected field (design note: "large, rarely needed on
// list endpoints") rather than split into its own collection, since
// it lives and dies with exactly one ride.
type Ride struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID    primitive.ObjectID `bson:"driverId" json:"driverId"`
	AirportID   primitive.ObjectID `bson:"airportId" json:"airportId"`
	Direction   Direction          `bson:"direction" json:"direction"`
	Home        Home               `bson:"home" json:"home"`
	DepartureAt time.Time          `bson:"departureAt" json:"departureAt"`

	SeatsTotal int `bson:"seatsTotal" json:"seatsTotal"`
	SeatsLeft  int `bson:"seatsLeft" json:"seatsLeft"`

	LuggageTotal int `bson:"luggageTotal" json:"luggageTotal"`
	LuggageLeft  int `bson:"luggageLeft" json:"luggageLeft"`

	PricePerSeat int64 `bson:"pricePerSeat" json:"pricePerSeat"`

	// Route is a GeoJSON LineString: ordered waypoints, possibly a
	// two-point fallback when no routing service was available.
	Route Route `bson:"route" json:"route,omitempty"`

	Status  Status `bson:"status" json:"status"`
	Comment string `bson:"comment,omitempty" json:"comment,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Route is a GeoJSON LineString over [lon,lat] waypoints.
type Route struct {
	Type        string      `bson:"type" json:"type"`
	Coordinates [][]float64 `bson:"coordinates" json:"coordinates"`
}

func NewRoute(waypoints [][2]float64) Route {
	coords := make([][]float64, len(waypoints))
	for i, wp := range waypoints {
		coords[i] = []float64{wp[0], wp[1]}
	}
	return Route{Type: "LineString", Coordinates: coords}
}

// Summary drops Route for list endpoints, per spec §4.7's projection
// rule ("Projections exclude the full route polyline").
type Summary struct {
	ID           primitive.ObjectID `json:"id"`
	DriverID     primitive.ObjectID `json:"driverId"`
	AirportID    primitive.ObjectID `json:"airportId"`
	Direction    Direction          `json:"direction"`
	Home         Home               `json:"home"`
	DepartureAt  time.Time          `json:"departureAt"`
	SeatsTotal   int                `json:"seatsTotal"`
	SeatsLeft    int                `json:"seatsLeft"`
	LuggageTotal int                `json:"luggageTotal"`
	LuggageLeft  int                `json:"luggageLeft"`
	PricePerSeat int64              `json:"pricePerSeat"`
	Status       Status             `json:"status"`
	Comment      string             `json:"comment,omitempty"`
	DistanceM    *float64           `json:"distanceMeters,omitempty"`
}

func (r Ride) ToSummary() Summary {
	return Summary{
		ID: r.ID, DriverID: r.DriverID, AirportID: r.AirportID, Direction: r.Direction,
		Home: r.Home, DepartureAt: r.DepartureAt, SeatsTotal: r.SeatsTotal, SeatsLeft: r.SeatsLeft,
		LuggageTotal: r.LuggageTotal, LuggageLeft: r.LuggageLeft, PricePerSeat: r.PricePerSeat,
		Status: r.Status, Comment: r.Comment,
	}
}

type CreateRideRequest struct {
	AirportID    string    `json:"airportId" binding:"required"`
	Direction    Direction `json:"direction" binding:"required"`
	Home         Home      `json:"home" binding:"required"`
	DepartureAt  time.Time `json:"departureAt" binding:"required"`
	SeatsTotal   int       `json:"seatsTotal" binding:"required,min=1"`
	LuggageTotal int       `json:"luggageTotal" binding:"min=0"`
	PricePerSeat int64     `json:"pricePerSeat" binding:"min=0"`
	Waypoints    [][2]float64 `json:"waypoints,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

type UpdateRideRequest struct {
	DepartureAt  *time.Time `json:"departureAt,omitempty"`
	PricePerSeat *int64     `json:"pricePerSeat,omitempty"`
	Comment      *string    `json:"comment,omitempty"`
}

// SearchFilter is spec.md §4.7's ride search input. PickupPoint
// switches the query from attribute-filtered/departureAt-ordered to
// nearest-to-point ordering via the GeoIndex.
type SearchFilter struct {
	AirportID    primitive.ObjectID
	Direction    Direction
	Date         *time.Time // filters to this calendar day in UTC
	MinSeats     int
	PickupLon    *float64
	PickupLat    *float64
	RadiusMeters float64
}

