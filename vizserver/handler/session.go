package handler

import (
	"html/template"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/Infatoshi/rusteze/vizserver/types"
	"github.com/gorilla/mux"
)

func Session(sessions *types.VizSessionMap, basepath string) func(w http.ResponseWriter, r *http.Request) {

	return func(w http.ResponseWriter, r *http.Request) {

		vars := mux.Vars(r)
		session := sessions.Get(vars["id"])

		if session == nil {
			w.Write([]byte("SESSION NOT FOUND !"))
			return
		}

		pagehtml := defaultPlayPage
		if custom, err := ioutil.ReadFile(basepath + "index.html"); err == nil {
			pagehtml = string(custom)
		}

		protocol := "ws"

		if os.Getenv("ENV") == "prod" {
			protocol = "wss"
		}

		var pageTemplate = template.Must(template.New("").Parse(pagehtml))
		pageTemplate.Execute(w, struct {
			WsURL string
			Rand  int64
			Tps   int
		}{
			WsURL: protocol + "://" + r.Host + "/session/" + session.GetId() + "/ws",
			Rand:  time.Now().Unix(),
			Tps:   session.GetTps(),
		})
	}
}

// defaultPlayPage paints incoming frames on a canvas and forwards key
// and pointer events back over the same websocket.
const defaultPlayPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>rusteze</title>
<style>
body { background: #111; color: #ddd; font-family: monospace; text-align: center; }
canvas { border: 1px solid #444; image-rendering: pixelated; cursor: crosshair; }
</style>
</head>
<body>
<h3>rusteze &mdash; {{.Tps}} ticks/s</h3>
<p>WASD to move, mouse to look, click to attack, space to jump, Q to quit</p>
<canvas id="screen" width="640" height="360"></canvas>
<script>
(function() {
	var canvas = document.getElementById("screen");
	var ctx = canvas.getContext("2d");
	var ws = new WebSocket("{{.WsURL}}");

	var keymap = {
		"KeyW": "forward",
		"KeyS": "back",
		"KeyA": "left",
		"KeyD": "right",
		"Space": "jump",
		"KeyQ": "quit"
	};

	function send(msg) {
		if (ws.readyState === WebSocket.OPEN) {
			ws.send(JSON.stringify(msg));
		}
	}

	ws.onmessage = function(event) {
		var msg = JSON.parse(event.data);
		if (msg.type !== "frame") { return; }

		var raw = atob(msg.data.pixels);
		var rgba = new Uint8ClampedArray(canvas.width * canvas.height * 4);
		for (var i = 0, j = 0; i < raw.length; i += 3, j += 4) {
			rgba[j] = raw.charCodeAt(i);
			rgba[j+1] = raw.charCodeAt(i+1);
			rgba[j+2] = raw.charCodeAt(i+2);
			rgba[j+3] = 255;
		}
		ctx.putImageData(new ImageData(rgba, canvas.width, canvas.height), 0, 0);
	};

	document.addEventListener("keydown", function(e) {
		if (e.repeat) { return; }
		var control = keymap[e.code];
		if (control) { send({type: "press", control: control}); }
	});

	document.addEventListener("keyup", function(e) {
		var control = keymap[e.code];
		if (control) { send({type: "release", control: control}); }
	});

	canvas.addEventListener("click", function() {
		canvas.requestPointerLock();
	});

	document.addEventListener("mousedown", function() {
		send({type: "press", control: "attack"});
	});

	document.addEventListener("mouseup", function() {
		send({type: "release", control: "attack"});
	});

	document.addEventListener("mousemove", function(e) {
		if (document.pointerLockElement !== canvas) { return; }
		send({type: "motion", dx: e.movementX, dy: e.movementY});
	});
})();
</script>
</body>
</html>
`
