package report

import (
	"slices"
	"strings"
)

// Collision is an external id matched by more than one local record.
type Collision struct {
	ExternalID string
	PlaceIDs   []string
}

// String renders the collision as id=a|b.
func (c Collision) String() string {
	return c.ExternalID + "=" + strings.Join(c.PlaceIDs, "|")
}

// Collisions records which local ids matched each external id.
type Collisions struct {
	byExternal map[string][]string
}

// NewCollisions returns an empty tracker.
func NewCollisions() *Collisions {
	return &Collisions{byExternal: make(map[string][]string)}
}

// Track notes that placeID matched externalID. Empty external ids are ignored.
func (c *Collisions) Track(externalID, placeID string) {
	if externalID == "" {
		return
	}
	c.byExternal[externalID] = append(c.byExternal[externalID], placeID)
}

// List returns the external ids claimed more than once, sorted by id.
func (c *Collisions) List() []Collision {
	var out []Collision
	for externalID, ids := range c.byExternal {
		if len(ids) < 2 {
			continue
		}
		out = append(out, Collision{ExternalID: externalID, PlaceIDs: slices.Clone(ids)})
	}
	slices.SortFunc(out, func(a, b Collision) int { return strings.Compare(a.ExternalID, b.ExternalID) })
	return out
}
