package handler

import (
	"encoding/json"
	"log"
	"net/http"

	notify "github.com/bitly/go-notify"
	"github.com/Infatoshi/rusteze/common/utils"
	"github.com/Infatoshi/rusteze/harness/input"
	"github.com/Infatoshi/rusteze/vizserver/types"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type wsincomingmessage struct {
	messageType int
	p           []byte
	err         error
}

// wsInputMessage is what the play page sends back for every key or
// pointer event.
type wsInputMessage struct {
	Type    string  `json:"type"`
	Control string  `json:"control"`
	Dx      float64 `json:"dx"`
	Dy      float64 `json:"dy"`
}

func Websocket(sessions *types.VizSessionMap, dispatcher *input.Dispatcher) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		session := sessions.Get(vars["id"])

		if session == nil {
			w.Write([]byte("SESSION NOT FOUND !"))
			return
		}

		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("upgrade:", err)
			return
		}

		watcher := types.NewWatcher(c)
		session.SetWatcher(watcher)

		defer func(c *websocket.Conn) {
			session.RemoveWatcher(watcher.GetId())
			c.Close()
		}(c)

		// Read pump; input events come in here, and its final error send
		// is how we notice the socket going away client side. The pump
		// owns the channel and exits on its own error, so a disconnect
		// leaves nothing behind.
		incomingmsg := make(chan wsincomingmessage)
		go func(client *websocket.Conn, ch chan wsincomingmessage) {
			for {
				messageType, p, err := client.ReadMessage()
				ch <- wsincomingmessage{messageType, p, err}
				if err != nil {
					return
				}
			}
		}(c, incomingmsg)

		// Frames coming from the session tick loop
		framechan := make(chan interface{})
		notify.Start("viz:frame:"+session.GetId(), framechan)
		defer notify.Stop("viz:frame:"+session.GetId(), framechan)

		for {
			select {
			case msg := <-incomingmsg:
				{
					if msg.err != nil {
						utils.Debug("viz-server", "Client closed socket")
						return
					}

					dispatchInput(dispatcher, msg.p)
				}
			case framemsg := <-framechan:
				{
					framestring, ok := framemsg.(string)
					if !ok {
						utils.Debug("viz-server", "Failed to cast frame message into string")
						continue
					}

					c.WriteMessage(websocket.TextMessage, []byte("{\"type\":\"frame\", \"data\": "+framestring+"}"))
				}
			}
		}
	}
}

func dispatchInput(dispatcher *input.Dispatcher, raw []byte) {
	var msg wsInputMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		utils.Debug("viz-server", "Failed to decode input message; "+err.Error())
		return
	}

	switch msg.Type {
	case "press":
		dispatcher.DispatchPress(msg.Control)
	case "release":
		dispatcher.DispatchRelease(msg.Control)
	case "motion":
		dispatcher.DispatchMotion(msg.Dx, msg.Dy)
	}
}
