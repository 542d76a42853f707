package domain

import (
	"errors"
	"sort"
)

// ErrPinNotInOrder is returned when an ordering operation references a pin that is not part
// of the list being reordered.
var ErrPinNotInOrder = errors.New("pin not in order")

// ParentChange is a single parent pointer write needed to realize a new pin order.
type ParentChange struct {
	PinID    PinID
	ParentID *PinID
}

// OrderPins reconstructs display order from the parent pointers of a whiteboard's pins.
//
// Every input pin appears exactly once in the output, even when the pointers are damaged:
//   - several heads are walked in (CreatedAt, ID) order;
//   - when two pins claim the same parent, the earliest continues the chain and the others
//     start their own runs after the current ones;
//   - pins only reachable through a cycle are appended, starting from the earliest.
//
// A pin whose parent is not among pins counts as a head.
func OrderPins(pins []Pin) []Pin {
	out := make([]Pin, 0, len(pins))
	if len(pins) == 0 {
		return out
	}

	byID := make(map[PinID]Pin, len(pins))
	for _, p := range pins {
		byID[p.ID] = p
	}

	children := make(map[PinID][]Pin, len(pins))
	heads := make([]Pin, 0, 1)
	for _, p := range byID {
		if p.ParentID == nil {
			heads = append(heads, p)
			continue
		}
		if _, ok := byID[*p.ParentID]; !ok {
			heads = append(heads, p)
			continue
		}
		children[*p.ParentID] = append(children[*p.ParentID], p)
	}
	sortPinsByCreation(heads)
	for id := range children {
		sortPinsByCreation(children[id])
	}

	visited := make(map[PinID]bool, len(byID))
	walk := func(queue []Pin) {
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for !visited[cur.ID] {
				visited[cur.ID] = true
				out = append(out, cur)

				var next *Pin
				for _, c := range children[cur.ID] {
					if visited[c.ID] {
						continue
					}
					if next == nil {
						c := c
						next = &c
						continue
					}
					queue = append(queue, c)
				}
				if next == nil {
					break
				}
				cur = *next
			}
		}
	}

	walk(heads)

	if len(out) < len(byID) {
		rest := make([]Pin, 0, len(byID)-len(out))
		for _, p := range byID {
			if !visited[p.ID] {
				rest = append(rest, p)
			}
		}
		sortPinsByCreation(rest)
		for _, p := range rest {
			if !visited[p.ID] {
				walk([]Pin{p})
			}
		}
	}
	return out
}

// PinIDs projects pins onto their IDs, preserving order.
func PinIDs(pins []Pin) []PinID {
	out := make([]PinID, 0, len(pins))
	for _, p := range pins {
		out = append(out, p.ID)
	}
	return out
}

// Relink returns the parent pointer each pin must hold so that the list reads as ordered.
func Relink(ordered []PinID) map[PinID]*PinID {
	out := make(map[PinID]*PinID, len(ordered))
	for i, id := range ordered {
		if i == 0 {
			out[id] = nil
			continue
		}
		parent := ordered[i-1]
		out[id] = &parent
	}
	return out
}

// ParentChanges diffs the current pointers against the ones needed for desired and returns
// only the pins whose parent must change, in desired order.
func ParentChanges(current []Pin, desired []PinID) []ParentChange {
	have := make(map[PinID]*PinID, len(current))
	for _, p := range current {
		have[p.ID] = p.ParentID
	}
	want := Relink(desired)

	out := make([]ParentChange, 0)
	for _, id := range desired {
		w := want[id]
		h, known := have[id]
		if known && samePinPtr(h, w) {
			continue
		}
		out = append(out, ParentChange{PinID: id, ParentID: w})
	}
	return out
}

// MovePin moves pin to index within ordered. index is clamped to the list bounds.
func MovePin(ordered []PinID, pin PinID, index int) ([]PinID, error) {
	rest, ok := removePinID(ordered, pin)
	if !ok {
		return nil, ErrPinNotInOrder
	}
	return InsertPinAt(rest, pin, index), nil
}

// InsertPinAt inserts pin at index, clamped to [0, len(ordered)].
func InsertPinAt(ordered []PinID, pin PinID, index int) []PinID {
	if index < 0 {
		index = 0
	}
	if index > len(ordered) {
		index = len(ordered)
	}
	out := make([]PinID, 0, len(ordered)+1)
	out = append(out, ordered[:index]...)
	out = append(out, pin)
	out = append(out, ordered[index:]...)
	return out
}

// InsertPinAfter inserts pin directly after the given pin, or at the tail when after is nil.
func InsertPinAfter(ordered []PinID, pin PinID, after *PinID) ([]PinID, error) {
	if after == nil {
		return InsertPinAt(ordered, pin, len(ordered)), nil
	}
	for i, id := range ordered {
		if id == *after {
			return InsertPinAt(ordered, pin, i+1), nil
		}
	}
	return nil, ErrPinNotInOrder
}

// RemovePin drops pin from ordered. Removing an absent pin returns ordered unchanged.
func RemovePin(ordered []PinID, pin PinID) []PinID {
	out, _ := removePinID(ordered, pin)
	return out
}

func removePinID(ordered []PinID, pin PinID) ([]PinID, bool) {
	out := make([]PinID, 0, len(ordered))
	found := false
	for _, id := range ordered {
		if id == pin {
			found = true
			continue
		}
		out = append(out, id)
	}
	return out, found
}

func samePinPtr(a, b *PinID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortPinsByCreation(ps []Pin) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
