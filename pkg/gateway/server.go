package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
	"github.com/uxr-project/uxr-go/pkg/transport"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// ErrNoEngine is returned by NewServer without an engine.
var ErrNoEngine = errors.New("gateway requires an engine")

// Engine is the part of the restriction engine the gateway serves.
type Engine interface {
	CurrentRestrictions() restriction.Snapshot
	RegisterListener(ch subscriber.Channel) error
	UnregisterListener(ch subscriber.Channel) error
}

// Conn is a connection that can both receive notifications and carry responses.
type Conn interface {
	subscriber.Channel
	Send(data []byte) error
}

var (
	_ Conn   = (*transport.ServerConn)(nil)
	_ Sender = (*transport.ClientConn)(nil)
)

// Config configures a Server.
type Config struct {
	Engine Engine

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives decoded request and response events.
	ProtocolLogger log.Logger
}

// Server dispatches requests to the engine.
type Server struct {
	engine   Engine
	logger   *slog.Logger
	protoLog log.Logger
}

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	return &Server{
		engine:   cfg.Engine,
		logger:   cfg.Logger,
		protoLog: log.OrNoop(cfg.ProtocolLogger),
	}, nil
}

// OnMessage adapts HandleMessage to transport.ServerConfig.OnMessage.
func (s *Server) OnMessage(conn *transport.ServerConn, data []byte) {
	s.HandleMessage(conn, data)
}

// HandleMessage decodes a request frame, executes it and sends the response
// on conn. Frames that are not requests are logged and dropped.
func (s *Server) HandleMessage(conn Conn, data []byte) {
	start := time.Now()

	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.debugLog("dropping undecodable frame", "conn_id", conn.ID(), "error", err)
		s.logError(conn.ID(), "decode", err)
		return
	}
	s.logMessage(conn.ID(), log.DirectionIn, &log.MessageEvent{
		Kind:      wire.KindRequest,
		MessageID: req.MessageID,
		Operation: &req.Operation,
	})

	resp := s.HandleRequest(conn, req)

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.errorLog("failed to encode response", "conn_id", conn.ID(), "error", err)
		s.logError(conn.ID(), "encode", err)
		return
	}
	if err := conn.Send(out); err != nil {
		s.debugLog("failed to send response", "conn_id", conn.ID(), "error", err)
		s.logError(conn.ID(), "send", err)
		return
	}

	elapsed := time.Since(start)
	s.logMessage(conn.ID(), log.DirectionOut, &log.MessageEvent{
		Kind:           wire.KindResponse,
		MessageID:      resp.MessageID,
		Operation:      &req.Operation,
		Status:         &resp.Status,
		Snapshot:       resp.Snapshot,
		ProcessingTime: &elapsed,
	})
}

// HandleRequest executes req on behalf of conn.
func (s *Server) HandleRequest(conn Conn, req *wire.Request) *wire.Response {
	if req.MessageID == 0 {
		return &wire.Response{Status: wire.StatusInvalidArgument, Message: "messageId 0 is reserved"}
	}

	switch req.Operation {
	case wire.OpGetRestrictions:
		snap := s.engine.CurrentRestrictions()
		return &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess, Snapshot: &snap}

	case wire.OpRegister:
		if err := s.engine.RegisterListener(conn); err != nil {
			return errorResponse(req.MessageID, err)
		}
		// Read after registering so no change can fall between the two.
		snap := s.engine.CurrentRestrictions()
		return &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess, Snapshot: &snap}

	case wire.OpUnregister:
		if err := s.engine.UnregisterListener(conn); err != nil {
			return errorResponse(req.MessageID, err)
		}
		return &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess}

	default:
		return &wire.Response{
			MessageID: req.MessageID,
			Status:    wire.StatusUnsupported,
			Message:   fmt.Sprintf("unknown operation %d", req.Operation),
		}
	}
}

func errorResponse(id uint32, err error) *wire.Response {
	status := wire.StatusInternal
	if errors.Is(err, subscriber.ErrInvalidChannel) {
		status = wire.StatusInvalidArgument
	}
	return &wire.Response{MessageID: id, Status: status, Message: err.Error()}
}

func (s *Server) logMessage(connID string, dir log.Direction, msg *log.MessageEvent) {
	s.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message:      msg,
	})
}

func (s *Server) logError(connID, context string, err error) {
	s.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

// debugLog logs a debug message if logging is enabled.
func (s *Server) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// errorLog logs an error message if logging is enabled.
func (s *Server) errorLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
