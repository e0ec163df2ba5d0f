package pantry

import (
	"fmt"
	"time"

	"github.com/gordian-engine/pantry/pitem"
)

// EventKind identifies what an [Event] reports.
type EventKind uint8

const (
	_ EventKind = iota

	// The factory produced a new current kind.
	EventGenerated

	// An item landed in a pantry.
	EventLanded

	// The factory stopped, either by request or at teardown.
	EventSourceStopped

	// The left pantry stopped accepting items.
	EventLeftCompleted

	// The right pantry began accepting items.
	EventGateOpened

	// The right pantry stopped accepting items.
	EventRightCompleted

	// Teardown finished; no further events follow.
	EventTornDown
)

func (k EventKind) String() string {
	switch k {
	case EventGenerated:
		return "generated"
	case EventLanded:
		return "landed"
	case EventSourceStopped:
		return "source-stopped"
	case EventLeftCompleted:
		return "left-completed"
	case EventGateOpened:
		return "gate-opened"
	case EventRightCompleted:
		return "right-completed"
	case EventTornDown:
		return "torn-down"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Side names one of the two pantries.
type Side uint8

const (
	_ Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// Event is published by the [Coordinator]
// on [Config.Events] whenever its observable state changes.
type Event struct {
	Kind EventKind

	// Scheduler time of the change.
	At time.Time

	// Set for EventLanded.
	Side Side

	// For EventGenerated, only Kind, Seq and GeneratedAt are set.
	// For EventLanded, the full item.
	Item pitem.Item
}
