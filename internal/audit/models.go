package audit

import "time"

// Action names a mutation recorded in the audit trail.
type Action string

const (
	ActionVesselCreated   Action = "vessel_created"
	ActionVesselUpdated   Action = "vessel_updated"
	ActionVesselDeleted   Action = "vessel_deleted"
	ActionLoadAssigned    Action = "load_assigned"
	ActionLoadUnassigned  Action = "load_unassigned"
	ActionCarrierRepaired Action = "carrier_repaired"
	ActionCargoCreated    Action = "cargo_created"
	ActionCargoUpdated    Action = "cargo_updated"
	ActionCargoDeleted    Action = "cargo_deleted"
	ActionUserCreated     Action = "user_created"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id"`
	RelatedID string    `json:"related_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
