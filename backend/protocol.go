// Package backend connects the overlay to the capture/transcription backend.
// Messages are JSON objects, one per line on a Unix socket or one per text
// frame on a websocket.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"

	"handy/events"
)

// Message is sent from the backend to the overlay.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command is sent from the overlay to the backend.
type Command struct {
	Cmd    string   `json:"cmd"`
	Events []string `json:"events,omitempty"`
}

const (
	CmdSubscribe = "subscribe"
	CmdCancel    = "cancel-operation"
)

var ErrUnknownEvent = errors.New("unknown event")

// Decode parses one backend message. Payloads of the wrong shape do not
// fail: a bad mode decodes as "" and bad levels as an empty vector.
func Decode(data []byte) (events.Event, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal message: %w", err)
	}

	ev := events.Event{Name: events.Name(msg.Event)}
	switch ev.Name {
	case events.ShowOverlay:
		var mode string
		if len(msg.Payload) > 0 && json.Unmarshal(msg.Payload, &mode) == nil {
			ev.Mode = mode
		}
	case events.HideOverlay:
	case events.MicLevel:
		var levels []float64
		if len(msg.Payload) > 0 && json.Unmarshal(msg.Payload, &levels) == nil {
			ev.Levels = levels
		}
	default:
		return events.Event{}, fmt.Errorf("%w %q", ErrUnknownEvent, msg.Event)
	}
	return ev, nil
}

func encodeCommand(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	return data, nil
}

func subscribeCommand() Command {
	names := make([]string, len(events.Names))
	for i, n := range events.Names {
		names[i] = string(n)
	}
	return Command{Cmd: CmdSubscribe, Events: names}
}
