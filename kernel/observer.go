package kernel

import "github.com/tailored-agentic-units/converse/observability"

// Kernel event types.
const (
	EventTurnStart        observability.EventType = "kernel.turn.start"
	EventTurnState        observability.EventType = "kernel.turn.state"
	EventTurnComplete     observability.EventType = "kernel.turn.complete"
	EventTurnFailed       observability.EventType = "kernel.turn.failed"
	EventCapabilityChange observability.EventType = "kernel.capability.change"
	EventHistoryClear     observability.EventType = "kernel.history.clear"
	EventConfigChange     observability.EventType = "kernel.config.change"
	EventProbeComplete    observability.EventType = "kernel.probe.complete"
)
