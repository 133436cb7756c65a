package engine

import (
	"slices"
	"time"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

type TeamID string

type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseRetention Phase = "retention"
	PhaseBidding   Phase = "bidding"
	PhaseComplete  Phase = "complete"
	PhaseErrored   Phase = "errored"
	PhaseClosed    Phase = "closed"
)

func (p Phase) Finished() bool {
	return p == PhaseComplete || p == PhaseErrored || p == PhaseClosed
}

type RoundStatus string

const (
	RoundIdle     RoundStatus = "idle"
	RoundOpen     RoundStatus = "open"
	RoundRTM      RoundStatus = "rtm"
	RoundResolved RoundStatus = "resolved"
)

type RTMStatus string

const (
	RTMOffered    RTMStatus = "offered"
	RTMHikeWindow RTMStatus = "hike_window"
	RTMAwaitMatch RTMStatus = "await_match"
	RTMMatched    RTMStatus = "matched"
	RTMDeclined   RTMStatus = "declined"
	RTMExpired    RTMStatus = "expired"
	RTMForfeited  RTMStatus = "forfeited"
)

type Controller string

const (
	ControllerNone  Controller = "none"
	ControllerHuman Controller = "human"
	ControllerAI    Controller = "ai"
)

// AIParticipant is the participant id carried by automated commands.
const AIParticipant = "ai"

type Team struct {
	ID            TeamID             `json:"id"`
	Name          string             `json:"name"`
	Controller    Controller         `json:"controller"`
	Participant   string             `json:"participant,omitempty"`
	Budget        int64              `json:"budget"`
	Roster        []catalog.EntityID `json:"roster"`
	Retained      []catalog.EntityID `json:"retained"`
	DefaultSquad  []catalog.EntityID `json:"default_squad"`
	RetentionDone bool               `json:"retention_done"`
	RTMRemaining  int                `json:"rtm_remaining"`
	OverseasCount int                `json:"overseas_count"`
}

type Bid struct {
	Team   TeamID    `json:"team"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

type RTMOffer struct {
	Holder   TeamID    `json:"holder"`
	Winner   TeamID    `json:"winner"`
	Amount   int64     `json:"amount"`
	Status   RTMStatus `json:"status"`
	Deadline time.Time `json:"deadline"`
}

// Round is the bidding state for the entity currently in play.
type Round struct {
	Lot      int              `json:"lot"`
	Entity   catalog.EntityID `json:"entity"`
	Status   RoundStatus      `json:"status"`
	Seq      int              `json:"seq"`
	Amount   int64            `json:"amount"`
	Holder   TeamID           `json:"holder,omitempty"`
	History  []Bid            `json:"history"`
	Deadline time.Time        `json:"deadline"`
	RTM      *RTMOffer        `json:"rtm,omitempty"`
}

type Sale struct {
	Lot    int              `json:"lot"`
	Entity catalog.EntityID `json:"entity"`
	Team   TeamID           `json:"team"`
	Amount int64            `json:"amount"`
	ViaRTM bool             `json:"via_rtm"`
}

type State struct {
	// ID names this room instance. Codes are reused once a room is gone;
	// IDs never are.
	ID                string             `json:"id"`
	Code              string             `json:"code"`
	Season            string             `json:"season"`
	Host              string             `json:"host,omitempty"`
	Phase             Phase              `json:"phase"`
	Rules             Rules              `json:"rules"`
	Teams             []Team             `json:"teams"`
	PoolOrder         []catalog.EntityID `json:"-"`
	Pool              []catalog.EntityID `json:"pool"`
	Cursor            int                `json:"cursor"`
	Round             Round              `json:"round"`
	RetentionDeadline time.Time          `json:"retention_deadline"`
	Sales             []Sale             `json:"sales"`
	Unsold            []catalog.EntityID `json:"unsold"`
	Error             string             `json:"error,omitempty"`

	catalog *catalog.Catalog
}

// NewState builds a room in the setup phase with one team per franchise.
// poolOrder fixes the auction order; entities missing from it are appended
// in catalog order.
func NewState(code, host string, rules Rules, cat *catalog.Catalog, poolOrder []catalog.EntityID) State {
	s := State{
		Code:    code,
		Season:  cat.Season,
		Host:    host,
		Phase:   PhaseSetup,
		Rules:   rules,
		Round:   Round{Status: RoundIdle, Lot: -1},
		Sales:   []Sale{},
		Unsold:  []catalog.EntityID{},
		Pool:    []catalog.EntityID{},
		catalog: cat,
	}

	seen := make(map[catalog.EntityID]bool, len(cat.Entities))
	for _, id := range poolOrder {
		if _, ok := cat.Entity(id); ok && !seen[id] {
			s.PoolOrder = append(s.PoolOrder, id)
			seen[id] = true
		}
	}
	for _, id := range cat.EntityIDs() {
		if !seen[id] {
			s.PoolOrder = append(s.PoolOrder, id)
		}
	}

	for _, f := range cat.Franchises {
		s.Teams = append(s.Teams, Team{
			ID:           TeamID(f.ID),
			Name:         f.Name,
			Controller:   ControllerNone,
			Budget:       rules.Purse,
			Roster:       []catalog.EntityID{},
			Retained:     []catalog.EntityID{},
			DefaultSquad: cat.Squad(f.ID),
			RTMRemaining: rules.RTMRights,
		})
	}
	return s
}

func (s State) Catalog() *catalog.Catalog { return s.catalog }

// Clone deep-copies every slice so the copy can be mutated freely.
func (s State) Clone() State {
	c := s
	c.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Roster = slices.Clone(t.Roster)
		t.Retained = slices.Clone(t.Retained)
		t.DefaultSquad = slices.Clone(t.DefaultSquad)
		c.Teams[i] = t
	}
	c.PoolOrder = slices.Clone(s.PoolOrder)
	c.Pool = slices.Clone(s.Pool)
	c.Sales = slices.Clone(s.Sales)
	c.Unsold = slices.Clone(s.Unsold)
	c.Round.History = slices.Clone(s.Round.History)
	if s.Round.RTM != nil {
		offer := *s.Round.RTM
		c.Round.RTM = &offer
	}
	return c
}

func (s State) TeamIndex(id TeamID) int {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) Team(id TeamID) (Team, bool) {
	i := s.TeamIndex(id)
	if i < 0 {
		return Team{}, false
	}
	return s.Teams[i], true
}

// TeamOf reports the team a human participant currently controls.
func (s State) TeamOf(participant string) (Team, bool) {
	if participant == "" {
		return Team{}, false
	}
	for _, t := range s.Teams {
		if t.Controller == ControllerHuman && t.Participant == participant {
			return t, true
		}
	}
	return Team{}, false
}

// CurrentEntity is the entity in play, if a round is running.
func (s State) CurrentEntity() (catalog.Entity, bool) {
	if s.Phase != PhaseBidding || s.Round.Status == RoundIdle || s.catalog == nil {
		return catalog.Entity{}, false
	}
	return s.catalog.Entity(s.Round.Entity)
}
