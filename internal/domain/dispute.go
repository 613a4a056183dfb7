package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// DisputeAction is the resolution an administrator applies to a ride.
type DisputeAction string

const (
	DisputeActionRefund   DisputeAction = "REFUND"
	DisputeActionDismiss  DisputeAction = "DISMISS"
	DisputeActionEscalate DisputeAction = "ESCALATE"
)

// Valid reports whether a is a known dispute action.
func (a DisputeAction) Valid() bool {
	switch a {
	case DisputeActionRefund, DisputeActionDismiss, DisputeActionEscalate:
		return true
	}
	return false
}

// AlertSeverity grades a safety alert.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s AlertSeverity) Valid() bool {
	switch s {
	case AlertSeverityLow, AlertSeverityMedium, AlertSeverityHigh, AlertSeverityCritical:
		return true
	}
	return false
}

// DisputeResolution is one administrative action taken on a ride.
type DisputeResolution struct {
	Action     DisputeAction `json:"action"`
	Reason     string        `json:"reason"`
	ResolvedAt time.Time     `json:"resolved_at"`
}

// SafetyAlert is a structured alert raised against a ride.
type SafetyAlert struct {
	Message  string        `json:"message"`
	Severity AlertSeverity `json:"severity"`
	RaisedAt time.Time     `json:"raised_at"`
}

// DisputeRecord annotates a ride with dispute resolutions and safety alerts.
// Action, Reason and ResolvedAt hold the latest resolution.
type DisputeRecord struct {
	Action     DisputeAction       `json:"action,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	History    []DisputeResolution `json:"history,omitempty"`
	Alerts     []SafetyAlert       `json:"alerts,omitempty"`
}

// Resolve records a resolution as the latest action.
func (d *DisputeRecord) Resolve(action DisputeAction, reason string, at time.Time) {
	d.Action = action
	d.Reason = reason
	d.ResolvedAt = &at
	d.History = append(d.History, DisputeResolution{Action: action, Reason: reason, ResolvedAt: at})
}

// AddAlert appends a safety alert.
func (d *DisputeRecord) AddAlert(alert SafetyAlert) {
	d.Alerts = append(d.Alerts, alert)
}

// Value implements driver.Valuer.
func (d *DisputeRecord) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DisputeRecord) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*d = DisputeRecord{}
		return nil
	}
	return json.Unmarshal(data, d)
}
