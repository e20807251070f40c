// Package vizserver exposes running play sessions over HTTP: a frame
// viewer on a canvas, and a websocket carrying frames one way and
// operator input the other.
package vizserver

import (
	"net"
	"net/http"
	"os"

	"github.com/Infatoshi/rusteze/common/utils"
	"github.com/Infatoshi/rusteze/harness/input"
	apphandler "github.com/Infatoshi/rusteze/vizserver/handler"
	"github.com/Infatoshi/rusteze/vizserver/types"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type FetchSessionsCbk func() ([]types.SessionDescriptionInterface, error)

type VizService struct {
	addr          string
	webclientpath string
	fetchSessions FetchSessionsCbk
	dispatcher    *input.Dispatcher
	listener      net.Listener
}

func NewVizService(addr string, webclientpath string, fetchSessions FetchSessionsCbk, dispatcher *input.Dispatcher) *VizService {
	return &VizService{
		addr:          addr,
		webclientpath: webclientpath,
		fetchSessions: fetchSessions,
		dispatcher:    dispatcher,
	}
}

// Start binds the listen address and serves in the background. The
// returned channel closes once the server has wound down.
func (viz *VizService) Start() (chan struct{}, error) {

	sessiondescriptions, err := viz.fetchSessions()
	if err != nil {
		return nil, err
	}

	vizsessions := types.NewVizSessionMap()
	for _, description := range sessiondescriptions {
		vizsessions.Set(
			description.GetId(),
			types.NewVizSession(description),
		)
	}

	logger := os.Stdout
	router := mux.NewRouter()
	router.Handle("/", handlers.CombinedLoggingHandler(logger,
		http.HandlerFunc(apphandler.Home(vizsessions)),
	)).Methods("GET")

	router.Handle("/session/{id:[a-zA-Z0-9\\-]+}", handlers.CombinedLoggingHandler(logger,
		http.HandlerFunc(apphandler.Session(vizsessions, viz.webclientpath)),
	)).Methods("GET")

	router.Handle("/session/{id:[a-zA-Z0-9\\-]+}/ws", handlers.CombinedLoggingHandler(logger,
		http.HandlerFunc(apphandler.Websocket(vizsessions, viz.dispatcher)),
	)).Methods("GET")

	// Optional static assets of the play page (js, textures)
	router.PathPrefix("/lib/").Handler(http.FileServer(http.Dir(viz.webclientpath)))
	router.PathPrefix("/res/").Handler(http.FileServer(http.Dir(viz.webclientpath)))

	listener, err := net.Listen("tcp", viz.addr)
	if err != nil {
		return nil, err
	}
	viz.listener = listener

	utils.Debug("viz-server", "Listening on "+viz.addr)

	block := make(chan struct{})
	go func() {
		http.Serve(listener, router)
		close(block)
	}()

	return block, nil
}

func (viz *VizService) Stop() {
	if viz.listener != nil {
		viz.listener.Close()
	}
}
