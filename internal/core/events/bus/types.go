package bus

// Event types shared by the simulation, the sync layer and the server.
const (
	StepEvent          = "StepEvent"
	BatchEvent         = "BatchEvent"
	CollisionEvent     = "CollisionEvent"
	SyncEvent          = "SyncEvent"
	InitialSyncEvent   = "InitialSyncEvent"
	ConnectEvent       = "ConnectEvent"
	DisconnectEvent    = "DisconnectEvent"
	SetNameEvent       = "SetNameEvent"
	InputEvent         = "InputEvent"
	ResyncRequestEvent = "ResyncRequestEvent"
	PlayerJoinEvent    = "PlayerJoinEvent"
	PlayerLeaveEvent   = "PlayerLeaveEvent"
)

// StepData is the payload of StepEvent.
type StepData struct {
	DT float64
}

// Batch wraps events so they can be emitted as one BatchEvent. Each inner event
// is queued on its own and inherits the batch Source.
func Batch(source string, events ...Event) Event {
	return Event{Type: BatchEvent, Data: events, Source: source}
}
