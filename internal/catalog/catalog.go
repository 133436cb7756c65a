package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var ErrSeasonNotFound = errors.New("season not found")
var ErrInvalidCatalog = errors.New("invalid catalog")

type EntityID string

type Role string

const (
	RoleBatter       Role = "batter"
	RoleBowler       Role = "bowler"
	RoleAllRounder   Role = "all_rounder"
	RoleWicketKeeper Role = "wicket_keeper"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBatter, RoleBowler, RoleAllRounder, RoleWicketKeeper:
		return true
	}
	return false
}

// Entity is a biddable player. Entities are never mutated once loaded.
type Entity struct {
	ID        EntityID `json:"id"`
	Name      string   `json:"name"`
	Role      Role     `json:"role"`
	BasePrice int64    `json:"base_price"`
	Overseas  bool     `json:"overseas"`
}

type Franchise struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
}

// Catalog is the read-only reference data for one season.
type Catalog struct {
	Season        string                `json:"season"`
	Entities      []Entity              `json:"entities"`
	Franchises    []Franchise           `json:"franchises"`
	DefaultSquads map[string][]EntityID `json:"default_squads"`

	byID     map[EntityID]int
	previous map[EntityID]string
}

// Provider supplies catalogs. Load is called once per room setup.
type Provider interface {
	Load(ctx context.Context, season string) (*Catalog, error)
}

// Index builds the lookup tables and validates the catalog. It must be
// called before the catalog is handed to a room.
func (c *Catalog) Index() error {
	var errs error
	c.byID = make(map[EntityID]int, len(c.Entities))
	c.previous = make(map[EntityID]string)

	if len(c.Franchises) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: no franchises", ErrInvalidCatalog))
	}
	for i, e := range c.Entities {
		if e.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: entity %d has no id", ErrInvalidCatalog, i))
			continue
		}
		if _, dup := c.byID[e.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%w: duplicate entity %q", ErrInvalidCatalog, e.ID))
		}
		if !e.Role.Valid() {
			errs = multierr.Append(errs, fmt.Errorf("%w: entity %q has role %q", ErrInvalidCatalog, e.ID, e.Role))
		}
		if e.BasePrice <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: entity %q has base price %d", ErrInvalidCatalog, e.ID, e.BasePrice))
		}
		c.byID[e.ID] = i
	}

	franchises := make(map[string]bool, len(c.Franchises))
	for _, f := range c.Franchises {
		if franchises[f.ID] {
			errs = multierr.Append(errs, fmt.Errorf("%w: duplicate franchise %q", ErrInvalidCatalog, f.ID))
		}
		franchises[f.ID] = true
	}

	for team, squad := range c.DefaultSquads {
		if !franchises[team] {
			errs = multierr.Append(errs, fmt.Errorf("%w: squad for unknown franchise %q", ErrInvalidCatalog, team))
			continue
		}
		for _, id := range squad {
			if _, ok := c.byID[id]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("%w: squad %q lists unknown entity %q", ErrInvalidCatalog, team, id))
				continue
			}
			if prev, taken := c.previous[id]; taken && prev != team {
				errs = multierr.Append(errs, fmt.Errorf("%w: entity %q in squads %q and %q", ErrInvalidCatalog, id, prev, team))
				continue
			}
			c.previous[id] = team
		}
	}
	return errs
}

func (c *Catalog) Entity(id EntityID) (Entity, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entity{}, false
	}
	return c.Entities[i], true
}

// PreviousTeam reports the franchise whose previous-season squad lists id.
func (c *Catalog) PreviousTeam(id EntityID) (string, bool) {
	team, ok := c.previous[id]
	return team, ok
}

// Squad returns a copy of the franchise's previous-season squad, empty if absent.
func (c *Catalog) Squad(team string) []EntityID {
	return append([]EntityID{}, c.DefaultSquads[team]...)
}

func (c *Catalog) EntityIDs() []EntityID {
	ids := make([]EntityID, len(c.Entities))
	for i, e := range c.Entities {
		ids[i] = e.ID
	}
	return ids
}
