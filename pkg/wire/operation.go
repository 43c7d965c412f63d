package wire

// Operation is a request operation.
type Operation uint8

const (
	// OpGetRestrictions queries the current restriction snapshot.
	OpGetRestrictions Operation = 1

	// OpRegister registers the connection for restriction changes.
	OpRegister Operation = 2

	// OpUnregister unregisters the connection.
	OpUnregister Operation = 3
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpGetRestrictions:
		return "GET_RESTRICTIONS"
	case OpRegister:
		return "REGISTER"
	case OpUnregister:
		return "UNREGISTER"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpGetRestrictions && o <= OpUnregister
}
