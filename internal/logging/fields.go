package logging

// ログのフィールド名
const (
	FieldPlatform   = "platform"
	FieldLoop       = "loop"
	FieldEntity     = "entity"
	FieldCycleID    = "cycle_id"
	FieldTransition = "transition"
	FieldOutcome    = "outcome"
	FieldMessageID  = "message_id"
	FieldAttempt    = "attempt"
	FieldRequestID  = "request_id"
	FieldStatus     = "status"
	FieldLatency    = "latency_ms"
)
