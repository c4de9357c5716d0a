package events

import (
	"fmt"

	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
)

// Hooks receives lifecycle events from the broker.
//
// Implementations are called synchronously from the goroutine that
// delivered the event and must be safe for concurrent use.
type Hooks interface {
	OnHandshake(clientID string)
	OnSubscribe(clientID, channel string)
	OnUnsubscribe(clientID, channel string)
	// OnPublish receives an empty clientID when the server published.
	OnPublish(clientID, channel string, data any)
	OnDisconnect(clientID string)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) OnHandshake(string)            {}
func (NopHooks) OnSubscribe(string, string)    {}
func (NopHooks) OnUnsubscribe(string, string)  {}
func (NopHooks) OnPublish(string, string, any) {}
func (NopHooks) OnDisconnect(string)           {}

// StatusHooks writes one status line per event.
type StatusHooks struct {
	status *logging.StatusLogger
}

// NewStatusHooks returns hooks that log through status.
func NewStatusHooks(status *logging.StatusLogger) *StatusHooks {
	return &StatusHooks{status: status}
}

func (h *StatusHooks) OnHandshake(clientID string) {
	h.status.Log(fmt.Sprintf("Client %s handshake!", clientID))
}

func (h *StatusHooks) OnSubscribe(clientID, channel string) {
	h.status.Log(fmt.Sprintf("Client %s subscribes Channel: %s!", clientID, channel))
}

func (h *StatusHooks) OnUnsubscribe(clientID, channel string) {
	h.status.Log(fmt.Sprintf("Client %s leaves Channel: %s!", clientID, channel))
}

func (h *StatusHooks) OnPublish(clientID, channel string, _ any) {
	publisher := "Server"
	if clientID != "" {
		publisher = "Client " + clientID
	}
	h.status.Log(fmt.Sprintf("%s publishes to Channel: %s!", publisher, channel))
}

func (h *StatusHooks) OnDisconnect(clientID string) {
	h.status.Log(fmt.Sprintf("Client %s is disconnected!", clientID))
}

// Multi fans every event out to each of hooks in order. Nil entries are skipped.
func Multi(hooks ...Hooks) Hooks {
	list := make(multiHooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			list = append(list, h)
		}
	}
	return list
}

type multiHooks []Hooks

func (m multiHooks) OnHandshake(clientID string) {
	for _, h := range m {
		h.OnHandshake(clientID)
	}
}

func (m multiHooks) OnSubscribe(clientID, channel string) {
	for _, h := range m {
		h.OnSubscribe(clientID, channel)
	}
}

func (m multiHooks) OnUnsubscribe(clientID, channel string) {
	for _, h := range m {
		h.OnUnsubscribe(clientID, channel)
	}
}

func (m multiHooks) OnPublish(clientID, channel string, data any) {
	for _, h := range m {
		h.OnPublish(clientID, channel, data)
	}
}

func (m multiHooks) OnDisconnect(clientID string) {
	for _, h := range m {
		h.OnDisconnect(clientID)
	}
}

// Recorder is implemented by telemetry sinks that count lifecycle events.
type Recorder interface {
	RecordEvent(name, channel string)
}

// RecorderHooks reports every event to a Recorder.
type RecorderHooks struct {
	r Recorder
}

// NewRecorderHooks returns hooks feeding r.
func NewRecorderHooks(r Recorder) *RecorderHooks {
	return &RecorderHooks{r: r}
}

func (h *RecorderHooks) OnHandshake(string)                 { h.r.RecordEvent(EventHandshake, "") }
func (h *RecorderHooks) OnSubscribe(_, channel string)      { h.r.RecordEvent(EventSubscribe, channel) }
func (h *RecorderHooks) OnUnsubscribe(_, channel string)    { h.r.RecordEvent(EventUnsubscribe, channel) }
func (h *RecorderHooks) OnPublish(_, channel string, _ any) { h.r.RecordEvent(EventPublish, channel) }
func (h *RecorderHooks) OnDisconnect(string)                { h.r.RecordEvent(EventDisconnect, "") }
