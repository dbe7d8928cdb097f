package logging

// Standard structured log field names. Components must use these keys
// instead of ad-hoc spellings so downstream filtering stays reliable.
const (
	FieldComponent       = "component"
	FieldVideoID         = "video_id"
	FieldJobID           = "job_id"
	FieldJobKind         = "job_kind"
	FieldRequestID       = "request_id"
	FieldEventType       = "event_type"
	FieldAlert           = "alert"
	FieldErrorKind       = "error_kind"
	FieldErrorOperation  = "error_operation"
	FieldErrorDetailPath = "error_detail_path"
	FieldErrorHint       = "error_hint"
)
