package models

import "math"

// EarthRadiusKm matches the radius MongoDB uses for $centerSphere conversions.
const EarthRadiusKm = 6378.1

// GeoPoint is a GeoJSON point. Coordinates are stored as [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// ValidateCoordinates rejects latitudes outside [-90, 90] and longitudes outside [-180, 180].
func ValidateCoordinates(lat, lng float64) *ValidationError {
	var errs []FieldError
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		errs = append(errs, FieldError{Field: "lat", Message: "must be between -90 and 90"})
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		errs = append(errs, FieldError{Field: "lng", Message: "must be between -180 and 180"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// DistanceKm returns the great-circle distance between two points using the haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}
