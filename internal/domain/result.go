package domain

import "time"

// Outcome is the classification reported to whoever triggered a cycle.
type Outcome string

const (
	OutcomeUp          Outcome = "up"
	OutcomeDown        Outcome = "down"
	OutcomeMaintenance Outcome = "maintenance"
)

// CycleResult is what one evaluation cycle hands back to the trigger boundary.
type CycleResult struct {
	HTTPStatus int
	Outcome    Outcome
	HardOutage bool
	// ConfiguredDownHTTP is echoed in response metadata.
	ConfiguredDownHTTP int
	Summary            Summary
}

// Summary is the JSON body returned to the trigger.
type Summary struct {
	OK               bool       `json:"ok"`
	Status           Outcome    `json:"status"`
	Message          string     `json:"message,omitempty"`
	CycleID          string     `json:"cycle_id,omitempty"`
	DownSince        *time.Time `json:"down_since,omitempty"`
	DownForSeconds   *int64     `json:"down_for_seconds,omitempty"`
	ThresholdSeconds *int64     `json:"threshold_seconds,omitempty"`
	HardOutage       *bool      `json:"hard_outage,omitempty"`
	HTTPStatus       int        `json:"http_status,omitempty"`
	Time             string     `json:"time"`
}
