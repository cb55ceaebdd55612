package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. provider_retry).
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPlaceID identifies the local place record being processed.
	FieldPlaceID = "place_id"
	// FieldExternalID identifies the provider's place.
	FieldExternalID = "external_id"
	// FieldRunID correlates every line of one batch run.
	FieldRunID = "run_id"
	// FieldDecisionType names the kind of decision being logged.
	FieldDecisionType = "decision_type"
)

const (
	// FieldDecisionResult records the outcome of a decision.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason records why the decision went that way.
	FieldDecisionReason = "decision_reason"
)
