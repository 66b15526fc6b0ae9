package logger

// Standard field key constants for structured logging.
const (
	FieldService       = "service"
	FieldComponent     = "component"
	FieldCorrelationID = "correlation_id"
	FieldShutdownID    = "shutdown_id"
	FieldTrigger       = "trigger"
	FieldSignal        = "signal"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldIndex         = "index"
	FieldExitCode      = "exit_code"
	FieldTimeout       = "timeout"
	FieldDuration      = "duration_ms"
	FieldPhase         = "phase"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
// A trailing key without a value is dropped.
//
//	logger.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// ShutdownFields tags kvs with the shutdown sequence ID.
func ShutdownFields(id string, kvs ...interface{}) map[string]interface{} {
	m := Fields(kvs...)
	m[FieldShutdownID] = id
	return m
}

// ComponentFields creates fields for a component event. err may be nil.
func ComponentFields(name string, err error) map[string]interface{} {
	m := map[string]interface{}{FieldComponent: name}
	if err != nil {
		m[FieldError] = err.Error()
	}
	return m
}
