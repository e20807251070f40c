package types

import (
	commontypes "github.com/Infatoshi/rusteze/common/types"
	"github.com/Infatoshi/rusteze/common/utils"
	"github.com/Infatoshi/rusteze/engine"
)

// SessionDescriptionInterface is the slice of a running play session
// the viz server needs to expose it to watchers.
type SessionDescriptionInterface interface {
	GetId() string
	GetName() string
	GetTps() int
}

type VizSession struct {
	description SessionDescriptionInterface
	pool        *WatcherMap
}

func NewVizSession(description SessionDescriptionInterface) *VizSession {
	return &VizSession{
		pool:        NewWatcherMap(),
		description: description,
	}
}

func (session *VizSession) GetId() string {
	return session.description.GetId()
}

func (session *VizSession) GetName() string {
	return session.description.GetName()
}

func (session *VizSession) GetTps() int {
	return session.description.GetTps()
}

type VizInitMessageData struct {
	Tps      int `json:"tps"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`
}

type VizInitMessage struct {
	Type string             `json:"type"`
	Data VizInitMessageData `json:"data"`
}

func (session *VizSession) SetWatcher(watcher *Watcher) {
	session.pool.Set(watcher.GetId(), watcher)

	initMsg := VizInitMessage{
		Type: "init",
		Data: VizInitMessageData{
			Tps:      session.description.GetTps(),
			Width:    engine.ObsWidth,
			Height:   engine.ObsHeight,
			Channels: engine.ObsChannels,
		},
	}

	err := watcher.conn.WriteJSON(initMsg)
	if err != nil {
		utils.Debug("viz-server", "Could not send VizInitMessage JSON;"+err.Error())
	}
}

func (session *VizSession) RemoveWatcher(watcherid string) {
	session.pool.Remove(watcherid)
}

func (session *VizSession) GetNumberWatchers() int {
	return session.pool.Size()
}

type WatcherMap struct {
	*commontypes.SyncMap
}

func NewWatcherMap() *WatcherMap {
	return &WatcherMap{
		commontypes.NewSyncMap(),
	}
}

func (wmap *WatcherMap) Get(id string) *Watcher {
	if res, ok := (wmap.GetGeneric(id)).(*Watcher); ok {
		return res
	}

	return nil
}

type VizSessionMap struct {
	*commontypes.SyncMap
}

func NewVizSessionMap() *VizSessionMap {
	return &VizSessionMap{
		commontypes.NewSyncMap(),
	}
}

func (smap *VizSessionMap) Get(id string) *VizSession {
	if res, ok := (smap.GetGeneric(id)).(*VizSession); ok {
		return res
	}

	return nil
}
