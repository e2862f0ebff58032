// Package drag turns raw pointer events into a validated move intent.
//
// The controller is a small state machine:
//
//	Idle -> Pending -> Dragging -> (Committing | Cancelled) -> Idle
//
// Pending absorbs micro-movements so a click is not mistaken for a drag.
// The legal-target set is computed once when the drag starts, because the
// dragged subtree cannot change mid-gesture; drops are then validated by
// membership in that set, so ids outside the loaded tree never qualify. The controller never talks to the collaborator; it only hands
// a Move to whoever commits it.
package drag

import (
	"math"

	"bommel/internal/tree"
)

// Threshold is the pointer travel that turns a press into a drag.
const Threshold = 5.0

type State int

const (
	Idle State = iota
	Pending
	Dragging
	Committing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Move is the committed result of a gesture.
type Move struct {
	DraggedNodeID int64
	DropTargetID  int64
}

// Targets answers the questions a gesture needs about the current snapshot.
// *tree.Store satisfies it.
type Targets interface {
	Movable(nodeID int64) bool
	LegalTargets(nodeID int64) tree.IDSet
}

// Controller tracks one gesture at a time. It is not safe for concurrent use;
// it lives on the UI event loop.
type Controller struct {
	targets Targets

	state          State
	nodeID         int64
	startX, startY float64
	x, y           float64
	hoverTargetID  int64
	hovering       bool
	legal          tree.IDSet

	// OnTransition, when set, observes every state change including the
	// transient Committing and Cancelled states.
	OnTransition func(from, to State)
}

func NewController(targets Targets) *Controller {
	return &Controller{targets: targets}
}

// SetTargets swaps the snapshot used for future gestures, e.g. after a reload.
func (c *Controller) SetTargets(targets Targets) {
	c.targets = targets
}

func (c *Controller) State() State { return c.state }

// DraggedNodeID returns the node of the gesture in progress.
func (c *Controller) DraggedNodeID() (int64, bool) {
	return c.nodeID, c.state == Pending || c.state == Dragging
}

// HoverTarget returns the currently tracked valid drop target.
func (c *Controller) HoverTarget() (int64, bool) {
	return c.hoverTargetID, c.hovering
}

// Position returns the last tracked pointer position.
func (c *Controller) Position() (x, y float64) {
	return c.x, c.y
}

// IsInvalidTarget reports whether id is excluded for the running drag.
func (c *Controller) IsInvalidTarget(id int64) bool {
	return c.state == Dragging && !c.legal.Has(id)
}

// PointerDown starts a gesture over nodeID. It returns false if the press was
// ignored (gesture already running or node not draggable).
func (c *Controller) PointerDown(nodeID int64, x, y float64) bool {
	if c.state != Idle || c.targets == nil || !c.targets.Movable(nodeID) {
		return false
	}
	c.nodeID = nodeID
	c.startX, c.startY = x, y
	c.x, c.y = x, y
	c.transition(Pending)
	return true
}

// PointerMove tracks the pointer; in Pending it may start the drag.
func (c *Controller) PointerMove(x, y float64) {
	switch c.state {
	case Pending:
		c.x, c.y = x, y
		if math.Hypot(x-c.startX, y-c.startY) >= Threshold {
			c.legal = c.targets.LegalTargets(c.nodeID)
			c.transition(Dragging)
		}
	case Dragging:
		c.x, c.y = x, y
	}
}

// Enter marks targetID as hovered if it is a legal target.
func (c *Controller) Enter(targetID int64) {
	if c.state != Dragging || !c.legal.Has(targetID) {
		return
	}
	c.hoverTargetID = targetID
	c.hovering = true
}

// Leave clears the hover when the pointer leaves the tracked target.
func (c *Controller) Leave(targetID int64) {
	if c.state != Dragging || !c.hovering || c.hoverTargetID != targetID {
		return
	}
	c.hoverTargetID = 0
	c.hovering = false
}

// PointerUp ends the gesture. ok is true only for a valid drop.
func (c *Controller) PointerUp() (move Move, ok bool) {
	switch c.state {
	case Pending:
		c.reset()
		c.transition(Idle)
		return Move{}, false
	case Dragging:
		if c.hovering && c.legal.Has(c.hoverTargetID) {
			move = Move{DraggedNodeID: c.nodeID, DropTargetID: c.hoverTargetID}
			c.transition(Committing)
			ok = true
		} else {
			c.transition(Cancelled)
		}
		c.reset()
		c.transition(Idle)
		return move, ok
	default:
		return Move{}, false
	}
}

// Cancel unconditionally returns to Idle and forgets the gesture.
func (c *Controller) Cancel() {
	if c.state == Pending || c.state == Dragging {
		c.transition(Cancelled)
	}
	c.reset()
	if c.state != Idle {
		c.transition(Idle)
	}
}

func (c *Controller) reset() {
	c.nodeID = 0
	c.startX, c.startY = 0, 0
	c.x, c.y = 0, 0
	c.hoverTargetID = 0
	c.hovering = false
	c.legal = nil
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	if c.OnTransition != nil && from != to {
		c.OnTransition(from, to)
	}
}
