package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// GeoPoint is a latitude/longitude pair. Storage keeps it as [lng, lat].
type GeoPoint struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng"`
}

// ToStorage returns the [lng, lat] storage form.
func (g GeoPoint) ToStorage() []any {
	return []any{g.Lng, g.Lat}
}

func (g GeoPoint) String() string {
	return fmt.Sprintf("%g,%g", g.Lat, g.Lng)
}

// ParseGeoPoint accepts a GeoPoint, a {lat, lng} map or a "lat,lng" string.
func ParseGeoPoint(v any) (GeoPoint, error) {
	switch p := v.(type) {
	case GeoPoint:
		return p, nil
	case *GeoPoint:
		if p == nil {
			return GeoPoint{}, fmt.Errorf("nil geo point")
		}
		return *p, nil
	case map[string]any:
		lat, err := ToFloat(p["lat"])
		if err != nil {
			return GeoPoint{}, fmt.Errorf("geo point lat: %w", err)
		}
		lng, err := ToFloat(p["lng"])
		if err != nil {
			return GeoPoint{}, fmt.Errorf("geo point lng: %w", err)
		}
		return GeoPoint{Lat: lat, Lng: lng}, nil
	case string:
		latS, lngS, ok := strings.Cut(p, ",")
		if !ok {
			return GeoPoint{}, fmt.Errorf("geo point %q is not lat,lng", p)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
		if err != nil {
			return GeoPoint{}, fmt.Errorf("geo point lat: %w", err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
		if err != nil {
			return GeoPoint{}, fmt.Errorf("geo point lng: %w", err)
		}
		return GeoPoint{Lat: lat, Lng: lng}, nil
	default:
		return GeoPoint{}, fmt.Errorf("unsupported geo point %T", v)
	}
}

// geoFromStorage reads a stored [lng, lat] pair.
func geoFromStorage(v any) (GeoPoint, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return GeoPoint{}, false
	}
	lng, err := ToFloat(pair[0])
	if err != nil {
		return GeoPoint{}, false
	}
	lat, err := ToFloat(pair[1])
	if err != nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: lat, Lng: lng}, true
}
