package session

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/security"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloud upgrades the single connection, replies hello to any register
// it sees, and hands back every decoded envelope on a channel for
// assertions.
type fakeCloud struct {
	t        *testing.T
	upgrader websocket.Upgrader
	seen     chan *protocol.Envelope
}

func newFakeCloud(t *testing.T) *fakeCloud {
	return &fakeCloud{t: t, seen: make(chan *protocol.Envelope, 16)}
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	require.NoError(f.t, err)
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		f.seen <- env

		switch env.Cmd {
		case protocol.CmdRegister:
			hello := &protocol.Envelope{
				Cmd:   protocol.CmdHello,
				MsgID: 1000,
				Payload: &protocol.HelloPayload{Sid: protocol.Some("S1")},
			}
			data, _ := hello.Encode()
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Device.Vendor = "acme"
	cfg.Device.Model = "cam1"
	cfg.Behaviour.SecureChannel = false
	cfg.Transport.PingInterval = 50 * time.Millisecond
	cfg.Transport.PongWait = 500 * time.Millisecond
	cfg.Transport.HandshakeTimeout = time.Second
	cfg.Transport.MaxMessageSize = 1 << 20
	return cfg
}

func tokenForServer(t *testing.T, serverURL string) *security.AccessToken {
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &security.AccessToken{
		Raw: "testtoken",
		Claims: security.AccessTokenClaims{
			Host: host,
			Port: port,
		},
	}
}

func TestEngine_ColdRegisterReachesOperational(t *testing.T) {
	cloud := newFakeCloud(t)
	server := httptest.NewServer(cloud)
	defer server.Close()

	token := tokenForServer(t, server.URL)
	registered := make(chan string, 1)

	e := New(testConfig(), token, "", Callbacks{
		OnRegistered: func(sid string) { registered <- sid },
	}, nil)
	defer e.Stop()

	require.NoError(t, e.Connect(context.Background()))

	select {
	case sid := <-registered:
		assert.Equal(t, "S1", sid)
	case <-time.After(2 * time.Second):
		t.Fatal("on_registered never fired")
	}

	require.Eventually(t, func() bool { return e.State() == Operational }, time.Second, 10*time.Millisecond)

	var sawRegister, sawCamRegister bool
	for i := 0; i < 2; i++ {
		select {
		case env := <-cloud.seen:
			switch env.Cmd {
			case protocol.CmdRegister:
				sawRegister = true
				payload, ok := env.Payload.(*protocol.RegisterPayload)
				require.True(t, ok)
				assert.Equal(t, "acme", payload.Vendor)
			case protocol.CmdCamRegister:
				sawCamRegister = true
			}
		case <-time.After(time.Second):
			t.Fatal("cloud did not observe expected commands")
		}
	}
	assert.True(t, sawRegister)
	assert.True(t, sawCamRegister)
}

func TestEngine_DoneNotSupportedForUnregisteredCommand(t *testing.T) {
	cloud := newFakeCloud(t)
	server := httptest.NewServer(cloud)
	defer server.Close()

	token := tokenForServer(t, server.URL)
	e := New(testConfig(), token, "", Callbacks{}, nil)
	defer e.Stop()

	require.NoError(t, e.Connect(context.Background()))
	require.Eventually(t, func() bool { return e.State() == Operational }, time.Second, 10*time.Millisecond)

	// Drain register/cam_register observed by the fake cloud first.
	<-cloud.seen
	<-cloud.seen

	e.dispatchCommand(&protocol.Envelope{Cmd: protocol.CmdGetCamStatus, MsgID: 7, Payload: &protocol.GetCamStatusPayload{}})

	select {
	case env := <-cloud.seen:
		require.Equal(t, protocol.CmdDone, env.Cmd)
		payload, ok := env.Payload.(*protocol.DonePayload)
		require.True(t, ok)
		assert.Equal(t, protocol.DoneNotSupported, payload.Status)
		refid, set := env.RefID.Get()
		require.True(t, set)
		assert.EqualValues(t, 7, refid)
	case <-time.After(time.Second):
		t.Fatal("done reply never observed by cloud")
	}
}
