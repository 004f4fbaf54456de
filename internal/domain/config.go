package domain

import (
	"fmt"

	"github.com/elevatorsim/dispatch/internal/constants"
)

// SimConfig is the simulation's configuration entity: everything the engine
// needs to construct a building and run it. It is immutable once handed to
// the engine for a run; Reconfigure replaces it wholesale while stopped.
type SimConfig struct {
	NumElevators   int
	MinFloor       Floor
	MaxFloor       Floor
	Capacity       int
	TimePerFloorMs int64
	DoorDwellMs    int64
	LobbyFloor     Floor
	TickRateMs     int64

	// Scoring weights, spec.md §4.5, grouped as one block of fields;
	// NewDefaultSimConfig fills them from the scoring constants in the
	// constants package. Neither the environment config nor the reconfigure
	// endpoint sets them.
	SameFloorBoost     float64
	NearbyBoost        float64
	DirectionBoost     float64
	ETAWeight          float64
	TargetPenalty      float64
	OccupancyNearPen   float64
	OccupancyFullPen   float64
	FairnessWeight     float64
	EscalationMs       int64
	EscalationBoost    float64
	MorningRushStartMs int64 // minutes since midnight, sim clock maps onto a 24h wheel
	MorningRushEndMs   int64
	MorningRushMult    float64
}

// NewDefaultSimConfig returns the configuration spec.md §3 prescribes as
// defaults, with tick rate chosen for the given environment name.
func NewDefaultSimConfig(environment string) SimConfig {
	tick := int64(constants.DefaultTickRateMs)
	if environment == "production" {
		tick = int64(constants.ProductionTickRateMs)
	}
	return SimConfig{
		NumElevators:       constants.DefaultNumElevators,
		MinFloor:           NewFloor(1),
		MaxFloor:           NewFloor(constants.DefaultNumFloors),
		Capacity:           constants.DefaultCapacity,
		TimePerFloorMs:     constants.DefaultTimePerFloorMs,
		DoorDwellMs:        constants.DefaultDoorDwellMs,
		LobbyFloor:         NewFloor(constants.DefaultLobbyFloor),
		TickRateMs:         tick,
		SameFloorBoost:     constants.SameFloorBoost,
		NearbyBoost:        constants.NearbyBoost,
		DirectionBoost:     constants.DirectionBoost,
		ETAWeight:          constants.ETAWeight,
		TargetPenalty:      constants.TargetPenalty,
		OccupancyNearPen:   constants.OccupancyNearPen,
		OccupancyFullPen:   constants.OccupancyFullPen,
		FairnessWeight:     constants.FairnessWeight,
		EscalationMs:       constants.EscalationMs,
		EscalationBoost:    constants.EscalationBoost,
		MorningRushStartMs: constants.MorningRushStartMinute,
		MorningRushEndMs:   constants.MorningRushEndMinute,
		MorningRushMult:    constants.MorningRushMultiplier,
	}
}

// Validate checks the structural invariants of a configuration (spec.md §3,
// §7 INVALID_INPUT).
func (c SimConfig) Validate() error {
	if c.NumElevators <= 0 {
		return NewValidationError("numElevators must be positive", nil).WithContext("numElevators", c.NumElevators)
	}
	if c.MinFloor >= c.MaxFloor {
		return NewValidationError("minFloor must be less than maxFloor", nil).
			WithContext("minFloor", c.MinFloor.Value()).WithContext("maxFloor", c.MaxFloor.Value())
	}
	if !c.LobbyFloor.IsValid(c.MinFloor, c.MaxFloor) {
		return NewValidationError("lobbyFloor must be within [minFloor, maxFloor]", nil).
			WithContext("lobbyFloor", c.LobbyFloor.Value())
	}
	if c.Capacity <= 0 {
		return NewValidationError("capacity must be positive", nil).WithContext("capacity", c.Capacity)
	}
	if c.TimePerFloorMs <= 0 {
		return NewValidationError("timePerFloorMs must be positive", nil).WithContext("timePerFloorMs", c.TimePerFloorMs)
	}
	if c.DoorDwellMs < 0 {
		return NewValidationError("doorDwellMs cannot be negative", nil).WithContext("doorDwellMs", c.DoorDwellMs)
	}
	if c.TickRateMs <= 0 {
		return NewValidationError("tickRateMs must be positive", nil).WithContext("tickRateMs", c.TickRateMs)
	}
	return nil
}

// String renders a compact summary, handy for structured log fields.
func (c SimConfig) String() string {
	return fmt.Sprintf("elevators=%d floors=[%d,%d] capacity=%d tickMs=%d",
		c.NumElevators, c.MinFloor.Value(), c.MaxFloor.Value(), c.Capacity, c.TickRateMs)
}
