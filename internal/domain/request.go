package domain

// RequestType distinguishes requests originating from a hall call (external,
// a passenger waiting at a floor) from one originating from inside a car
// (internal, a passenger who has already boarded and pressed a destination
// button). It is a tagged field rather than two subtypes: both kinds flow
// through the same pending set, scoring, and archive.
type RequestType string

const (
	RequestExternal RequestType = "external"
	RequestInternal RequestType = "internal"
)

// Request is a single passenger trip, from creation through pickup to
// dropoff. CreatedAt/PickupAt/DropoffAt are sim-ms timestamps (0 means "not
// yet reached"). Priority is recomputed every tick by the scheduler; it is
// not part of the request's identity.
type Request struct {
	ID           string
	Type         RequestType
	FromFloor    Floor
	ToFloor      Floor
	Direction    Direction
	CreatedAt    int64
	AssignedTo   string // elevator ID, empty until assigned
	AssignedAt   int64
	PickupAt     int64
	DropoffAt    int64
	BasePriority float64 // spec.md §3, default 1; carried into Priority each refresh
	Priority     float64
	Escalated    bool
}

// IsPending reports whether the request still needs servicing.
func (r *Request) IsPending() bool {
	return r.DropoffAt == 0
}

// IsAssigned reports whether a car has claimed this request.
func (r *Request) IsAssigned() bool {
	return r.AssignedTo != ""
}

// IsPickedUp reports whether the passenger has boarded. Internal requests
// are boarded by definition at creation (spec.md §4.3's fast path) even if
// that happens to land on sim-ms 0, so PickupAt==0 alone can't be trusted
// as the "not yet boarded" sentinel for them.
func (r *Request) IsPickedUp() bool {
	return r.Type == RequestInternal || r.PickupAt != 0
}

// WaitTime returns how long (sim-ms) the request has waited for pickup as of
// now. Once picked up, the wait time is frozen at PickupAt-CreatedAt.
func (r *Request) WaitTime(now int64) int64 {
	if r.IsPickedUp() {
		return r.PickupAt - r.CreatedAt
	}
	return now - r.CreatedAt
}

// TravelTime returns the pickup-to-dropoff duration once the trip has
// completed, or 0 if it has not.
func (r *Request) TravelTime() int64 {
	if r.DropoffAt == 0 || !r.IsPickedUp() {
		return 0
	}
	return r.DropoffAt - r.PickupAt
}
