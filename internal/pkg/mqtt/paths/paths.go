package paths

// Topic segments of the vehicle protocol. Every topic has the shape
// {root}/{vehicleID}/{segment}.

// Upstream: vehicle -> fleetpulse
const (
	// Status carries a single status record: { "status": 1, "model": 2 }.
	Status = "status"

	// ReadStatus is the reply to a status read and has the same payload as Status.
	ReadStatus = "rdstatus"

	// Heartbeat carries a batch: { "data": [ { "mode": 1, "temp": 30, ... } ] }.
	Heartbeat = "heartbeat"
)

// Downstream: fleetpulse -> vehicle
const (
	// WriteStatus carries an operator command: { "status": 0 }.
	WriteStatus = "wrstatus"
)

// GroupFleetPulse is the shared-subscription group used when several
// fleetpulse replicas consume the same topics.
const GroupFleetPulse = "fleetpulse"

// IsSingleRecord reports whether a segment carries one status record
// instead of a data batch.
func IsSingleRecord(segment string) bool {
	return segment == Status || segment == ReadStatus
}
