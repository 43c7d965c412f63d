package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusInvalidArgument indicates a malformed request argument.
	StatusInvalidArgument Status = 1

	// StatusUnsupported indicates the operation is not supported.
	StatusUnsupported Status = 2

	// StatusInternal indicates the service failed to process the request.
	StatusInternal Status = 3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
