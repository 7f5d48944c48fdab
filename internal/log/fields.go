package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldCacheKey   = "cache_key"
	FieldRows       = "rows"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentWarehouse = "warehouse"
)
