package handler

import (
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/Infatoshi/rusteze/harness/input"
	"github.com/Infatoshi/rusteze/vizserver/types"
)

type fakeDescription struct{}

func (fakeDescription) GetId() string   { return "session-1" }
func (fakeDescription) GetName() string { return "test" }
func (fakeDescription) GetTps() int     { return 60 }

func startWsServer(t *testing.T, dispatcher *input.Dispatcher) (*httptest.Server, *types.VizSessionMap, string) {
	t.Helper()

	sessions := types.NewVizSessionMap()
	sessions.Set("session-1", types.NewVizSession(fakeDescription{}))

	router := mux.NewRouter()
	router.HandleFunc("/session/{id}/ws", Websocket(sessions, dispatcher))

	srv := httptest.NewServer(router)
	wsurl := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/session-1/ws"

	return srv, sessions, wsurl
}

func dialWatcher(t *testing.T, wsurl string) *websocket.Conn {
	t.Helper()

	c, _, err := websocket.DefaultDialer.Dial(wsurl, nil)
	assert.NoError(t, err)

	// init message comes first
	_, _, err = c.ReadMessage()
	assert.NoError(t, err)

	return c
}

func TestWatcherDisconnectLeavesNothingBehind(t *testing.T) {
	tracker := input.NewTracker(0)
	srv, sessions, wsurl := startWsServer(t, input.NewDispatcher(tracker))
	defer srv.Close()

	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		c := dialWatcher(t, wsurl)
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sessions.Get("session-1").GetNumberWatchers() == 0 && runtime.NumGoroutine() <= before+2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, 0, sessions.Get("session-1").GetNumberWatchers())
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2, "disconnected watchers must not leave goroutines")
}

func TestInputMessagesReachTheTracker(t *testing.T) {
	tracker := input.NewTracker(1.0)
	srv, _, wsurl := startWsServer(t, input.NewDispatcher(tracker))
	defer srv.Close()

	c := dialWatcher(t, wsurl)
	defer c.Close()

	assert.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"type":"press","control":"forward"}`)))
	assert.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"type":"motion","dx":4,"dy":-2}`)))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sample := tracker.SampleAndReset()
		if sample.IsHeld(input.ControlForward) && sample.DeltaX == 4 && sample.DeltaY == -2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("input events never reached the tracker")
}
