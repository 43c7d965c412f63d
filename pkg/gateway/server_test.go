package gateway_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uxr-project/uxr-go/pkg/engine"
	"github.com/uxr-project/uxr-go/pkg/gateway"
	"github.com/uxr-project/uxr-go/pkg/gateway/mocks"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// fakeConn is an in-process Conn that records sent frames and notifications.
type fakeConn struct {
	*subscriber.FuncChannel

	mu            sync.Mutex
	sent          [][]byte
	notifications []restriction.Snapshot
	sendErr       error
}

func newFakeConn(id string) *fakeConn {
	c := &fakeConn{}
	c.FuncChannel = subscriber.NewFuncChannel(id, func(s restriction.Snapshot) error {
		c.mu.Lock()
		c.notifications = append(c.notifications, s)
		c.mu.Unlock()
		return nil
	})
	return c
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) responses(t *testing.T) []*wire.Response {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*wire.Response, 0, len(c.sent))
	for _, data := range c.sent {
		resp, err := wire.DecodeResponse(data)
		require.NoError(t, err)
		out = append(out, resp)
	}
	return out
}

func (c *fakeConn) received() []restriction.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]restriction.Snapshot(nil), c.notifications...)
}

type fixture struct {
	engine *engine.Engine
	state  *vehicle.DrivingStateService
	speed  *vehicle.SpeedSensor
	server *gateway.Server
}

// newFixture builds an initialized engine in fallback mode behind a gateway.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state: vehicle.NewDrivingStateService(vehicle.DrivingStateParked),
		speed: vehicle.NewSpeedSensor(0),
	}
	var err error
	f.engine, err = engine.New(engine.Config{DrivingState: f.state, Speed: f.speed})
	require.NoError(t, err)
	require.NoError(t, f.engine.Init())
	t.Cleanup(f.engine.Release)

	f.server, err = gateway.NewServer(gateway.Config{Engine: f.engine})
	require.NoError(t, err)
	return f
}

func request(t *testing.T, id uint32, op wire.Operation) []byte {
	t.Helper()
	data, err := wire.EncodeRequest(&wire.Request{MessageID: id, Operation: op})
	require.NoError(t, err)
	return data
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := gateway.NewServer(gateway.Config{})
	assert.ErrorIs(t, err, gateway.ErrNoEngine)
}

func TestGetRestrictions(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")

	f.server.HandleMessage(conn, request(t, 1, wire.OpGetRestrictions))

	resps := conn.responses(t)
	require.Len(t, resps, 1)
	assert.Equal(t, uint32(1), resps[0].MessageID)
	assert.Equal(t, wire.StatusSuccess, resps[0].Status)
	require.NotNil(t, resps[0].Snapshot)
	assert.Equal(t, f.engine.CurrentRestrictions(), *resps[0].Snapshot)
	assert.Equal(t, 0, f.engine.SubscriberCount())
}

func TestRegisterReceivesChanges(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")

	f.server.HandleMessage(conn, request(t, 1, wire.OpRegister))
	resps := conn.responses(t)
	require.Len(t, resps, 1)
	assert.Equal(t, wire.StatusSuccess, resps[0].Status)
	require.NotNil(t, resps[0].Snapshot)
	assert.Equal(t, 1, f.engine.SubscriberCount())

	f.state.SetState(vehicle.DrivingStateMoving)

	got := conn.received()
	require.Len(t, got, 1)
	assert.Equal(t, restriction.FullyRestricted, got[0].ActiveRestrictions)
	assert.Greater(t, got[0].TimestampNanos, resps[0].Snapshot.TimestampNanos)
}

func TestRegisterIsIdempotent(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")

	f.server.HandleMessage(conn, request(t, 1, wire.OpRegister))
	f.server.HandleMessage(conn, request(t, 2, wire.OpRegister))
	assert.Equal(t, 1, f.engine.SubscriberCount())

	f.state.SetState(vehicle.DrivingStateMoving)
	assert.Len(t, conn.received(), 1)
}

func TestUnregister(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")

	f.server.HandleMessage(conn, request(t, 1, wire.OpRegister))
	f.server.HandleMessage(conn, request(t, 2, wire.OpUnregister))
	f.server.HandleMessage(conn, request(t, 3, wire.OpUnregister))

	resps := conn.responses(t)
	require.Len(t, resps, 3)
	for _, r := range resps {
		assert.Equal(t, wire.StatusSuccess, r.Status, "message %d", r.MessageID)
	}
	assert.Nil(t, resps[1].Snapshot)
	assert.Equal(t, 0, f.engine.SubscriberCount())

	f.state.SetState(vehicle.DrivingStateMoving)
	assert.Empty(t, conn.received())
}

func TestLivenessLossRemovesRegistration(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")

	f.server.HandleMessage(conn, request(t, 1, wire.OpRegister))
	require.Equal(t, 1, f.engine.SubscriberCount())

	conn.Lose()
	assert.Equal(t, 0, f.engine.SubscriberCount())
}

func TestInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		req    *wire.Request
		wantID uint32
		want   wire.Status
	}{
		{"unknown operation", &wire.Request{MessageID: 5, Operation: 99}, 5, wire.StatusUnsupported},
		{"reserved message id", &wire.Request{MessageID: 0, Operation: wire.OpGetRestrictions}, 0, wire.StatusInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			conn := newFakeConn("c1")

			// Bypass EncodeRequest validation to put an invalid request on the wire.
			data, err := wire.Marshal(map[int]any{0: wire.KindRequest, 1: tt.req.MessageID, 2: tt.req.Operation})
			require.NoError(t, err)
			f.server.HandleMessage(conn, data)

			resps := conn.responses(t)
			require.Len(t, resps, 1)
			assert.Equal(t, tt.wantID, resps[0].MessageID)
			assert.Equal(t, tt.want, resps[0].Status)
			assert.NotEmpty(t, resps[0].Message)
		})
	}
}

func TestNonRequestFramesDropped(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")

	data, err := wire.EncodeNotification(&wire.Notification{})
	require.NoError(t, err)
	f.server.HandleMessage(conn, data)
	f.server.HandleMessage(conn, []byte{0xff, 0x00})

	assert.Empty(t, conn.responses(t))
}

func TestSendFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn("c1")
	conn.sendErr = errors.New("broken pipe")

	f.server.HandleMessage(conn, request(t, 1, wire.OpRegister))
	assert.Equal(t, 1, f.engine.SubscriberCount())
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want wire.Status
	}{
		{"invalid channel", subscriber.ErrInvalidChannel, wire.StatusInvalidArgument},
		{"other", errors.New("boom"), wire.StatusInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := mocks.NewMockEngine(t)
			eng.EXPECT().RegisterListener(mock.Anything).Return(tt.err).Once()
			eng.EXPECT().UnregisterListener(mock.Anything).Return(tt.err).Once()

			srv, err := gateway.NewServer(gateway.Config{Engine: eng})
			require.NoError(t, err)
			conn := newFakeConn("c1")

			reg := srv.HandleRequest(conn, &wire.Request{MessageID: 1, Operation: wire.OpRegister})
			assert.Equal(t, tt.want, reg.Status)
			assert.Nil(t, reg.Snapshot)

			unreg := srv.HandleRequest(conn, &wire.Request{MessageID: 2, Operation: wire.OpUnregister})
			assert.Equal(t, tt.want, unreg.Status)
		})
	}
}

func TestRegisterReadsSnapshotAfterRegistering(t *testing.T) {
	eng := mocks.NewMockEngine(t)
	var order []string
	eng.EXPECT().RegisterListener(mock.Anything).RunAndReturn(func(subscriber.Channel) error {
		order = append(order, "register")
		return nil
	}).Once()
	eng.EXPECT().CurrentRestrictions().RunAndReturn(func() restriction.Snapshot {
		order = append(order, "read")
		return restriction.NewSnapshot(restriction.NoVideo, 10)
	}).Once()

	srv, err := gateway.NewServer(gateway.Config{Engine: eng})
	require.NoError(t, err)

	resp := srv.HandleRequest(newFakeConn("c1"), &wire.Request{MessageID: 1, Operation: wire.OpRegister})
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, restriction.NoVideo, resp.Snapshot.ActiveRestrictions)
	assert.Equal(t, []string{"register", "read"}, order)
}

var _ gateway.Engine = (*engine.Engine)(nil)
