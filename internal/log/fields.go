package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldError        = "error"
	FieldObligationID = "obligation_id"
	FieldPostingID    = "posting_id"
	FieldAmountCents  = "amount_cents"
	FieldSheetRef     = "sheet_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentProcessor = "processor"
	ComponentWorker    = "worker"
)
