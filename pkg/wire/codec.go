package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/uxr-project/uxr-go/pkg/restriction"
)

// Codec errors.
var (
	ErrUnexpectedKind = errors.New("unexpected message kind")
)

// encMode is the CBOR encoder mode for UXR messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for UXR messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility: unknown keys are ignored.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

type wireRequest struct {
	Kind      MessageKind `cbor:"0,keyasint"`
	MessageID uint32      `cbor:"1,keyasint"`
	Operation Operation   `cbor:"2,keyasint"`
}

type wireResponse struct {
	Kind      MessageKind           `cbor:"0,keyasint"`
	MessageID uint32                `cbor:"1,keyasint"`
	Status    Status                `cbor:"2,keyasint"`
	Snapshot  *restriction.Snapshot `cbor:"3,keyasint,omitempty"`
	Message   string                `cbor:"4,keyasint,omitempty"`
}

type wireNotification struct {
	Kind     MessageKind          `cbor:"0,keyasint"`
	Snapshot restriction.Snapshot `cbor:"1,keyasint"`
}

type wireControl struct {
	Kind     MessageKind        `cbor:"0,keyasint"`
	Type     ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32             `cbor:"2,keyasint,omitempty"`
}

func expectKind(got, want MessageKind) error {
	if got != want {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedKind, got, want)
	}
	return nil
}

// decodeKind checks the message kind before decoding data into v. Keys of
// different message kinds overlap, so a full decode of the wrong kind can
// fail on a field type instead of on the kind.
func decodeKind(data []byte, want MessageKind, v any) error {
	kind, err := PeekMessageKind(data)
	if err != nil {
		return err
	}
	if err := expectKind(kind, want); err != nil {
		return err
	}
	return Unmarshal(data, v)
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(wireRequest{Kind: KindRequest, MessageID: req.MessageID, Operation: req.Operation})
}

// DecodeRequest decodes CBOR bytes into a request message.
// The operation is not validated.
func DecodeRequest(data []byte) (*Request, error) {
	var w wireRequest
	if err := decodeKind(data, KindRequest, &w); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	// Validation is left to the receiver so it can answer with the messageId.
	return &Request{MessageID: w.MessageID, Operation: w.Operation}, nil
}

// EncodeResponse encodes a response message to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(wireResponse{
		Kind:      KindResponse,
		MessageID: resp.MessageID,
		Status:    resp.Status,
		Snapshot:  resp.Snapshot,
		Message:   resp.Message,
	})
}

// DecodeResponse decodes CBOR bytes into a response message.
func DecodeResponse(data []byte) (*Response, error) {
	var w wireResponse
	if err := decodeKind(data, KindResponse, &w); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &Response{
		MessageID: w.MessageID,
		Status:    w.Status,
		Snapshot:  w.Snapshot,
		Message:   w.Message,
	}, nil
}

// EncodeNotification encodes a notification message to CBOR bytes.
func EncodeNotification(notif *Notification) ([]byte, error) {
	return Marshal(wireNotification{Kind: KindNotification, Snapshot: notif.Snapshot})
}

// DecodeNotification decodes CBOR bytes into a notification message.
func DecodeNotification(data []byte) (*Notification, error) {
	var w wireNotification
	if err := decodeKind(data, KindNotification, &w); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	return &Notification{Snapshot: w.Snapshot}, nil
}

// EncodeControlMessage encodes a control message (ping/pong/close) to CBOR bytes.
func EncodeControlMessage(msg *ControlMessage) ([]byte, error) {
	return Marshal(wireControl{Kind: KindControl, Type: msg.Type, Sequence: msg.Sequence})
}

// DecodeControlMessage decodes CBOR bytes into a control message.
func DecodeControlMessage(data []byte) (*ControlMessage, error) {
	var w wireControl
	if err := decodeKind(data, KindControl, &w); err != nil {
		return nil, fmt.Errorf("failed to decode control message: %w", err)
	}
	return &ControlMessage{Type: w.Type, Sequence: w.Sequence}, nil
}

// PeekMessageKind returns the kind of an encoded message without decoding
// the rest of it.
func PeekMessageKind(data []byte) (MessageKind, error) {
	var peek struct {
		Kind MessageKind `cbor:"0,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return KindUnknown, fmt.Errorf("failed to peek message: %w", err)
	}
	return peek.Kind, nil
}
