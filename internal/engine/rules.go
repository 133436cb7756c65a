package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var ErrInvalidRules = errors.New("invalid rules")

// IncrementBand applies Step while the current bid is below Below. A band
// with Below == 0 is open-ended and must be last.
type IncrementBand struct {
	Below int64 `json:"below"`
	Step  int64 `json:"step"`
}

type DisconnectPolicy string

const (
	// DisconnectIdle leaves an abandoned team unbound; it takes no actions.
	DisconnectIdle DisconnectPolicy = "idle"
	// DisconnectAI hands an abandoned team to the automated bidder.
	DisconnectAI DisconnectPolicy = "ai"
)

type Rules struct {
	Purse            int64            `json:"purse"`
	MaxRetention     int              `json:"max_retention"`
	RetentionCost    []int64          `json:"retention_cost"`
	MaxSquad         int              `json:"max_squad"`
	OverseasCap      int              `json:"overseas_cap"`
	Increments       []IncrementBand  `json:"increments"`
	BidTimer         time.Duration    `json:"bid_timer"`
	RTMWindow        time.Duration    `json:"rtm_window"`
	RetentionWindow  time.Duration    `json:"retention_window"`
	RTMRights        int              `json:"rtm_rights"`
	RTMHike          bool             `json:"rtm_hike"`
	AIFill           bool             `json:"ai_fill"`
	DisconnectPolicy DisconnectPolicy `json:"disconnect_policy"`
}

// DefaultRules mirrors a 2025-style mega auction with amounts in lakhs.
func DefaultRules() Rules {
	return Rules{
		Purse:         12000,
		MaxRetention:  6,
		RetentionCost: []int64{1800, 1400, 1100, 1800, 1400, 400},
		MaxSquad:      25,
		OverseasCap:   8,
		Increments: []IncrementBand{
			{Below: 100, Step: 5},
			{Below: 200, Step: 10},
			{Below: 500, Step: 20},
			{Below: 0, Step: 25},
		},
		BidTimer:         10 * time.Second,
		RTMWindow:        15 * time.Second,
		RetentionWindow:  3 * time.Minute,
		RTMRights:        1,
		RTMHike:          true,
		AIFill:           true,
		DisconnectPolicy: DisconnectAI,
	}
}

func (r Rules) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidRules}, args...)...))
	}

	if r.Purse <= 0 {
		add("purse must be positive, got %d", r.Purse)
	}
	if r.MaxRetention < 0 {
		add("max retention must not be negative, got %d", r.MaxRetention)
	}
	if len(r.RetentionCost) < r.MaxRetention {
		add("retention cost table has %d slots, need %d", len(r.RetentionCost), r.MaxRetention)
	}
	for i, c := range r.RetentionCost {
		if c < 0 {
			add("retention cost slot %d is negative", i)
		}
	}
	if r.MaxSquad <= 0 {
		add("max squad must be positive, got %d", r.MaxSquad)
	}
	if r.MaxRetention > r.MaxSquad {
		add("max retention %d exceeds max squad %d", r.MaxRetention, r.MaxSquad)
	}
	if r.OverseasCap < 0 {
		add("overseas cap must not be negative, got %d", r.OverseasCap)
	}
	if len(r.Increments) == 0 {
		add("increment table is empty")
	}
	var prev int64
	for i, b := range r.Increments {
		if b.Step <= 0 {
			add("increment band %d has step %d", i, b.Step)
		}
		if b.Below == 0 && i != len(r.Increments)-1 {
			add("open-ended increment band %d is not last", i)
		}
		if b.Below != 0 && b.Below <= prev {
			add("increment band %d is not ascending", i)
		}
		prev = b.Below
	}
	if r.BidTimer <= 0 {
		add("bid timer must be positive, got %s", r.BidTimer)
	}
	if r.RTMRights > 0 && r.RTMWindow <= 0 {
		add("rtm window must be positive when rtm rights are granted")
	}
	if r.RetentionWindow < 0 {
		add("retention window must not be negative")
	}
	if r.RTMRights < 0 {
		add("rtm rights must not be negative, got %d", r.RTMRights)
	}
	switch r.DisconnectPolicy {
	case DisconnectIdle, DisconnectAI:
	default:
		add("unknown disconnect policy %q", r.DisconnectPolicy)
	}
	return errs
}

// Increment returns the step required above the current amount.
func (r Rules) Increment(current int64) int64 {
	for _, b := range r.Increments {
		if b.Below == 0 || current < b.Below {
			return b.Step
		}
	}
	return r.Increments[len(r.Increments)-1].Step
}

// SlotCost is the price of the n-th retention (zero-based), independent of
// which entity fills the slot.
func (r Rules) SlotCost(slot int) (int64, bool) {
	if slot < 0 || slot >= r.MaxRetention || slot >= len(r.RetentionCost) {
		return 0, false
	}
	return r.RetentionCost[slot], true
}
