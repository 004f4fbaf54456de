package constants

import "time"

// Application constants centralized in one location to improve type safety
// and eliminate magic strings throughout the codebase

// Default Configuration Values
const (
	// Server defaults
	DefaultPort     = 6660
	DefaultLogLevel = "INFO"
	DefaultMinFloor = 0
	DefaultMaxFloor = 9

	// Timing defaults
	DefaultEachFloorDuration = 500 * time.Millisecond
	DefaultOpenDoorDuration  = 2 * time.Second

	// WebSocket update interval
	StatusUpdateInterval = 1 * time.Second
)

// HTTP Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeTextPlain = "text/plain"
)

// HTTP Methods
const (
	MethodGET  = "GET"
	MethodPOST = "POST"
)

// Component Names for Logging
const (
	ComponentHTTPServer  = "http-server"
	ComponentHTTPHandler = "http_handler"
	ComponentElevator    = "elevator"
	ComponentManager     = "manager"
	ComponentDirections  = "directions"
)

// Floor Validation Limits
const (
	MinAllowedFloor = -100 // Reasonable minimum for basements
	MaxAllowedFloor = 200  // Reasonable maximum for skyscrapers
)

// Metrics
const (
	MetricsNamespace  = "elevator"
	ElevatorNameLabel = "elevator"
)

// Default Elevator Names
const (
	DefaultElevatorPrefix = "Elevator"
)

// Simulation defaults, spec.md §3 "Configuration" and §4.5 scoring.
const (
	DefaultNumElevators   = 3
	DefaultNumFloors      = 12
	DefaultCapacity       = 6
	DefaultTimePerFloorMs = 1000
	DefaultDoorDwellMs    = 2000
	DefaultLobbyFloor     = 1

	// Tick rate: spec.md §6 — production runs slower (1000ms) than every
	// other environment (200ms), to keep a demo/dev session watchable.
	ProductionTickRateMs  = 1000
	DefaultTickRateMs     = 200
	MinSpawnIntervalMs    = 200
	MaxScenarioCount      = 250
	SlidingWindowFactor   = 2 // prune samples older than windowMs * this factor

	// Scheduler scoring weights, spec.md §4.5.
	SameFloorBoost   = 1000.0
	NearbyBoost      = 300.0
	DirectionBoost   = 150.0
	ETAWeight        = -1.0
	TargetPenalty    = -10.0
	OccupancyNearPen = -200.0
	OccupancyFullPen = -5000.0
	FairnessWeight   = -0.05

	EscalationMs    = 30_000
	EscalationBoost = 2000.0

	// DefaultBasePriority is a request's priority floor before wait-time
	// accrual (spec.md §3).
	DefaultBasePriority = 1.0

	MorningRushStartMinute = 9 * 60      // 09:00
	MorningRushEndMinute   = 9*60 + 30   // 09:30
	MorningRushMultiplier  = 1.5
)

// Component name for the simulation engine's log fields.
const ComponentEngine = "engine"
const ComponentScheduler = "scheduler"
const ComponentSpawner = "spawner"
