package models

import "time"

// StatusError marks a record produced by a failed run
const StatusError = "error"

// ResultRecord is the structured outcome of one analysis run
type ResultRecord struct {
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence,omitempty"`

	// Raw color ratios, only for Positive and Negative outcomes
	ControlIntensity *float64 `json:"controlIntensity,omitempty"`
	TestIntensity    *float64 `json:"testIntensity,omitempty"`

	// Failure description
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`

	Profile  string `json:"profile,omitempty"`
	Source   string `json:"source,omitempty"`
	Artifact string `json:"artifact,omitempty"`
}

// IsError reports whether the run failed before a decision was made
func (r ResultRecord) IsError() bool {
	return r.Status == StatusError
}

// TestRecord is a persisted test submission
type TestRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Date             time.Time `json:"date"`
	Result           string    `json:"result"`
	Message          string    `json:"message"`
	Color            string    `json:"color"`
	Confidence       *float64  `json:"confidence"`
	ControlIntensity float64   `json:"controlIntensity"`
	TestIntensity    float64   `json:"testIntensity"`
	ImageRef         string    `json:"imageUrl,omitempty"`
	Profile          string    `json:"profile,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Display describes how a result is presented to a user
type Display struct {
	Message string `json:"message"`
	Color   string `json:"color"`
}

var displays = map[string]Display{
	"Invalid":  {Message: "Invalid Test - Strip faulty", Color: "gray"},
	"Positive": {Message: "Positive - Test line detected", Color: "green"},
	"Negative": {Message: "Negative - No test line", Color: "red"},
	"Unclear":  {Message: "Unclear - Retake test", Color: "yellow"},
}

// DisplayFor maps a result status to its user-facing message and color
func DisplayFor(status string) Display {
	if d, ok := displays[status]; ok {
		return d
	}
	return Display{Message: "Analysis failed", Color: "gray"}
}
