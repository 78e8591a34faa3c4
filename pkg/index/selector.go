package index

import (
	"github.com/pay-theory/arangorm/pkg/model"
)

// EdgeType is the index type ArangoDB maintains on _from/_to.
const EdgeType = "edge"

// Selector picks the declared index that best serves a filter
type Selector struct {
	indexes []model.Index
}

// NewSelector creates a new index selector
func NewSelector(indexes []model.Index) *Selector {
	return &Selector{
		indexes: indexes,
	}
}

// SelectOptimal returns the index covering the most equality-constrained
// properties, or nil when no index applies.
func (s *Selector) SelectOptimal(equality []string) *model.Index {
	constrained := make(map[string]struct{}, len(equality))
	for _, p := range equality {
		constrained[p] = struct{}{}
	}

	var best *model.Index
	bestScore := 0
	for i := range s.indexes {
		score := s.scoreIndex(s.indexes[i], constrained)
		if score > bestScore {
			bestScore = score
			idx := s.indexes[i]
			best = &idx
		}
	}
	return best
}

// scoreIndex rates how well an index serves the constrained properties.
func (s *Selector) scoreIndex(idx model.Index, constrained map[string]struct{}) int {
	if len(idx.Fields) == 0 {
		return 0
	}

	// edge indexes serve _from and _to independently
	if idx.Type == EdgeType {
		score := 0
		for _, f := range idx.Fields {
			if _, ok := constrained[f]; ok {
				score += 10
			}
		}
		return score
	}

	// other indexes need a leading prefix
	score := 0
	for _, f := range idx.Fields {
		if _, ok := constrained[f]; !ok {
			break
		}
		score += 10
	}
	if score > 0 && idx.Unique && score == len(idx.Fields)*10 {
		score += 5
	}
	return score
}

// IsEdge reports whether idx is an edge index.
func IsEdge(idx *model.Index) bool {
	return idx != nil && idx.Type == EdgeType
}
