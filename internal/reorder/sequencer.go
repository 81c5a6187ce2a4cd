// Package reorder computes task order after a drag-and-drop move and the
// position updates needed to persist it.
package reorder

import "taskboard/internal/models"

// Sequencer plans reorders. PersistOrder mirrors the remote store's ability to
// store sort positions; without it plans still carry the new order but no updates.
type Sequencer struct {
	PersistOrder bool
}

// Plan is the outcome of a single move.
type Plan struct {
	// Order is the full list after the move with Position set to the index.
	Order []models.Task
	// Updates are the tasks whose position changed, in list order.
	Updates []models.TaskPosition
	// Moved is false for a no-op (same index or out of range).
	Moved bool
}

// Plan moves the task at index from to index to.
func (s Sequencer) Plan(tasks []models.Task, from, to int) Plan {
	order, moved := Move(tasks, from, to)
	if !moved {
		return Plan{Order: order}
	}

	var updates []models.TaskPosition
	for i := range order {
		if order[i].Position != i && s.PersistOrder {
			updates = append(updates, models.TaskPosition{ID: order[i].ID, Position: i})
		}
		order[i].Position = i
	}

	return Plan{Order: order, Updates: updates, Moved: true}
}

// Move returns a copy of items with the element at from reinserted at to.
// Elements between the two indexes shift by one; the rest keep their index.
// The copy is returned unchanged with false when from == to or either index is
// out of range.
func Move[T any](items []T, from, to int) ([]T, bool) {
	out := make([]T, len(items))
	copy(out, items)

	if from == to || from < 0 || to < 0 || from >= len(items) || to >= len(items) {
		return out, false
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved

	return out, true
}
