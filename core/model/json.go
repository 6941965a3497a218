package model

import (
	"encoding/json"
	"fmt"
)

// The status enums cross the HTTP and MQTT boundaries as their string forms.

func (s ReportStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *ReportStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, ok := ParseReportStatus(str)
	if !ok {
		return fmt.Errorf("unknown report status %q", str)
	}
	*s = v
	return nil
}

func (s RunStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *RunStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, ok := ParseRunStatus(str)
	if !ok {
		return fmt.Errorf("unknown run status %q", str)
	}
	*s = v
	return nil
}

func (s VehicleStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *VehicleStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "available":
		*s = VehicleAvailable
	case "on-route":
		*s = VehicleOnRoute
	case "maintenance":
		*s = VehicleMaintenance
	default:
		return fmt.Errorf("unknown vehicle status %q", str)
	}
	return nil
}

func (s DeliveryStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *DeliveryStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "pending":
		*s = DeliveryPending
	case "in-transit":
		*s = DeliveryInTransit
	case "completed":
		*s = DeliveryCompleted
	default:
		return fmt.Errorf("unknown delivery status %q", str)
	}
	return nil
}

func (t FuelEntryType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *FuelEntryType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "trip":
		*t = FuelEntryTrip
	case "refuel":
		*t = FuelEntryRefuel
	default:
		return fmt.Errorf("unknown fuel entry type %q", str)
	}
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *Role) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, ok := ParseRole(str)
	if !ok {
		return fmt.Errorf("unknown role %q", str)
	}
	*r = v
	return nil
}
