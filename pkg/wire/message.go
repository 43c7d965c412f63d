package wire

import (
	"fmt"

	"github.com/uxr-project/uxr-go/pkg/restriction"
)

// MessageKind discriminates message types on the wire (key 0).
type MessageKind uint8

const (
	KindUnknown      MessageKind = 0
	KindRequest      MessageKind = 1
	KindResponse     MessageKind = 2
	KindNotification MessageKind = 3
	KindControl      MessageKind = 4
)

// String returns the kind name.
func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	case KindControl:
		return "control"
	default:
		return "unknown"
	}
}

// Request is sent by a client.
//
// CBOR encoding:
//
//	{
//	  0: 1,            // kind
//	  1: messageId,    // uint32, non-zero
//	  2: operation     // uint8
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("messageId 0 is reserved")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	return nil
}

// Response answers a request.
//
// CBOR encoding:
//
//	{
//	  0: 2,            // kind
//	  1: messageId,    // matches request
//	  2: status,       // uint8
//	  3: snapshot,     // current restrictions (optional)
//	  4: message       // error text (optional)
//	}
type Response struct {
	MessageID uint32                `cbor:"1,keyasint"`
	Status    Status                `cbor:"2,keyasint"`
	Snapshot  *restriction.Snapshot `cbor:"3,keyasint,omitempty"`
	Message   string                `cbor:"4,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Notification carries a restriction change to a registered client.
//
// CBOR encoding:
//
//	{
//	  0: 3,            // kind
//	  1: snapshot
//	}
type Notification struct {
	Snapshot restriction.Snapshot `cbor:"1,keyasint"`
}

// ControlMessage represents a transport-level control message.
type ControlMessage struct {
	Type     ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32             `cbor:"2,keyasint,omitempty"`
}

// ControlMessageType represents the type of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "ping"
	case ControlPong:
		return "pong"
	case ControlClose:
		return "close"
	default:
		return "unknown"
	}
}
