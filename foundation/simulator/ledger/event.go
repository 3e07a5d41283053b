package ledger

import (
	"fmt"
	"time"

	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
)

// Event types carried by the reference scenarios. The ledger itself treats
// the type as an opaque tag except for the tamper procedure, which targets
// transfers.
const (
	EventTypeTransfer = 1
	EventTypeMessage  = 2
	EventTypeContract = 3
)

// MaxPayloadSize bounds the opaque payload carried by an event. Longer
// payloads are truncated on append.
const MaxPayloadSize = 255

// eventTimeFormat is the wall clock format recorded on each event.
const eventTimeFormat = "2006-01-02 15:04:05"

// Event represents a single record sealed into a block. The payload is an
// opaque byte string to the ledger; interpreting it is the caller's
// business.
type Event struct {
	Type      int    `json:"type"`
	Payload   []byte `json:"payload"`
	TimeStamp string `json:"timestamp"`
	Hash      string `json:"hash"`
	Valid     bool   `json:"valid"`
}

// ValidateFunc is the extension point for event validation. It must be a
// pure function of the event.
type ValidateFunc func(evt Event) bool

// AcceptAll is the default validation hook. The simulator accepts every
// event.
func AcceptAll(Event) bool { return true }

// newEvent constructs an event, stamps it with the wall clock and hashes it.
func newEvent(hashFn digest.Func, typ int, payload []byte, now time.Time, validate ValidateFunc) Event {
	if len(payload) > MaxPayloadSize {
		payload = payload[:MaxPayloadSize]
	}

	evt := Event{
		Type:      typ,
		Payload:   append([]byte(nil), payload...),
		TimeStamp: now.Format(eventTimeFormat),
	}

	evt.Hash = eventHash(hashFn, evt)
	evt.Valid = validate(evt)

	return evt
}

// eventHash hashes the type, payload and timestamp of the event.
func eventHash(hashFn digest.Func, evt Event) string {
	data := fmt.Sprintf("%d%s%s", evt.Type, evt.Payload, evt.TimeStamp)
	return hashFn([]byte(data))
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	e.Payload = append([]byte(nil), e.Payload...)
	return e
}
