package model

import "time"

// DeliveryStatus tracks a waste delivery from dispatch to arrival.
type DeliveryStatus int

const (
	DeliveryPending DeliveryStatus = iota
	DeliveryInTransit
	DeliveryCompleted
)

// String returns a human-readable representation of the delivery status.
func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryPending:
		return "pending"
	case DeliveryInTransit:
		return "in-transit"
	case DeliveryCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Delivery records one vehicle trip to a facility. It is created at dispatch
// time with zero weight and filled in on arrival.
type Delivery struct {
	ID               string         `json:"id"`
	VehicleID        string         `json:"vehicle_id"`
	FacilityID       string         `json:"facility_id"`
	RunID            string         `json:"run_id,omitempty"`
	Zone             string         `json:"zone"`
	WeightKg         float64        `json:"weight"`
	Composition      Composition    `json:"composition,omitempty"`
	Status           DeliveryStatus `json:"status"`
	EstimatedArrival time.Time      `json:"estimated_arrival"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
