package harness

type EventLog struct{ Value string }
type EventDebug struct{ Value string }
type EventStatusUpdate struct{ Status string }
type EventError struct{ Err error }
type EventClose struct{}
