package query

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pay-theory/arangorm/internal/expr"
)

// DefaultUnit is used when a proximity search names no unit.
const DefaultUnit = "meters"

var unitFactors = map[string]float64{
	"meters":     1,
	"kilometers": 1000,
	"miles":      1600,
	"feet":       0.3048,
}

// ToMeters converts distance in unit to meters. ok is false for unknown
// units, in which case distance is returned unchanged.
func ToMeters(distance float64, unit string) (meters float64, ok bool) {
	factor, known := unitFactors[unit]
	if !known {
		return distance, false
	}
	return distance * factor, true
}

// source renders the iteration source: the collection itself, or a WITHIN
// proximity source when the filter holds a near leaf.
func (a *Assembler) source(collection string, preds []Predicate) (string, map[string]any) {
	near, ok := FindNear(preds)
	if !ok {
		return collection, nil
	}

	spec := near.Spec
	meters, known := ToMeters(spec.Distance, spec.Unit)
	if !known {
		a.logger.Warn("unknown distance unit, using distance as meters",
			zap.String("unit", spec.Unit),
			zap.Float64("distance", spec.Distance))
	}

	params := expr.NewParams(expr.NearPrefix, 0)
	src := fmt.Sprintf("WITHIN(%s, %s, %s, %s, %s)",
		collection,
		params.Named("lat", spec.Point.Lat),
		params.Named("lng", spec.Point.Lng),
		params.Named("radius", meters),
		params.Named("unit", spec.Unit),
	)
	return src, params.Values()
}
