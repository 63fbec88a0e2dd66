// Package geo is spec.md §4.7's GeoIndex: the spherical
// nearest-neighbor primitives shared by ride, ride-request and
// airport search. It owns no collection of its own — each of those
// packages holds its own 2dsphere-indexed field — but centralizes the
// $geoNear pipeline stage and the haversine fallback used wherever a
// pure-Go distance estimate is cheaper than a database round trip.
package geo

import (
	"math"

	"go.mongodb.org/mongo-driver/bson"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two
// lon/lat points, in meters.
func HaversineMeters(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// NearStage builds the $geoNear aggregation stage used to order
// documents by geodesic distance from (lon,lat) to their indexed
// geometry, with a max-distance cutoff, per spec.md §4.7's "nearest
// with max-distance" nearest-neighbor query. $geoNear must be the
// first stage in a pipeline.
func NearStage(field string, lon, lat float64, maxDistanceMeters float64, distanceField string, extraQuery bson.M) bson.D {
	near := bson.M{
		"near": bson.M{
			"type":        "Point",
			"coordinates": []float64{lon, lat},
		},
		"distanceField": distanceField,
		"key":           field,
		"spherical":     true,
	}
	if maxDistanceMeters > 0 {
		near["maxDistance"] = maxDistanceMeters
	}
	if len(extraQuery) > 0 {
		near["query"] = extraQuery
	}
	return bson.D{{Key: "$geoNear", Value: near}}
}
