package server

import "time"

const (
	// Per-connection outbound queue; events beyond it are dropped for that client.
	SendBuffer = 64

	WriteTimeout    = 5 * time.Second
	ShutdownTimeout = 5 * time.Second

	// Inbound requests allowed per connection per window.
	RateLimitMessages = 10
	RateLimitWindow   = time.Second
)

// Event types.
const (
	EventActionRecorded   = "action_recorded"
	EventRecordingStopped = "recording_stopped"
	EventStepCompleted    = "step_completed"
	EventRunFinished      = "run_finished"
	EventReport           = "report"
	EventPong             = "pong"
	EventError            = "error"
)
