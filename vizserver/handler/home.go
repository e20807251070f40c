package handler

import (
	"net/http"
	"strconv"

	"github.com/Infatoshi/rusteze/vizserver/types"
)

func Home(sessions *types.VizSessionMap) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<h2>rusteze play server</h2>"))

		sessionsArray := sessions.ToArrayGeneric()

		for _, item := range sessionsArray {
			if session, ok := item.(*types.VizSession); ok {
				w.Write([]byte("<a href='/session/" + session.GetId() + "'>" + session.GetName() + " (" + strconv.Itoa(session.GetNumberWatchers()) + " watchers right now)</a><br />"))
			}
		}
	}
}
