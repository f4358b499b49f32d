package protocol

const (
	ErrTransport        = "E_TRANSPORT"
	ErrMalformedPayload = "E_MALFORMED_PAYLOAD"
	ErrActionFailed     = "E_ACTION_FAILED"
	ErrStreamFailed     = "E_STREAM_FAILED"
	ErrUnsupported      = "E_UNSUPPORTED"
)
