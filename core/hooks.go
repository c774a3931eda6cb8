// Package core provides the fundamental building blocks of the golem ORM.
// This file defines lifecycle hooks that allow custom logic to be executed
// before or after persistence operations such as create, update, delete,
// find, fetch, save and paginate.
package core

import (
	"context"
	"sync"
)

// Phase tells whether a hook runs before or after the persistence operation.
type Phase string

const (
	// PhaseBefore hooks run before the operation reaches the driver.
	PhaseBefore Phase = "before"
	// PhaseAfter hooks run once the driver call has completed.
	PhaseAfter Phase = "after"
)

// HookEvent identifies the persistence operation a hook is attached to.
//
// The payload passed to a HookFunc depends on the event and the phase:
//
//	before find, before fetch   QueryBuilder
//	before paginate             PaginateQueries
//	after fetch                 []Row
//	after paginate              Paginator
//	everything else             Row
type HookEvent string

const (
	// HookFind wraps single-row lookups (Find, FindOne).
	HookFind HookEvent = "find"
	// HookFetch wraps multi-row lookups (FindMany).
	HookFetch HookEvent = "fetch"
	// HookCreate wraps the insert of a new row.
	HookCreate HookEvent = "create"
	// HookUpdate wraps the update of a persisted row.
	HookUpdate HookEvent = "update"
	// HookDelete wraps the removal of a row.
	HookDelete HookEvent = "delete"
	// HookSave wraps both the create and the update path.
	HookSave HookEvent = "save"
	// HookPaginate wraps paginated lookups.
	HookPaginate HookEvent = "paginate"
)

// HookEvents lists every hook event in installation order.
var HookEvents = []HookEvent{HookFetch, HookFind, HookCreate, HookUpdate, HookDelete, HookSave, HookPaginate}

// Phases lists both phases in installation order.
var Phases = []Phase{PhaseBefore, PhaseAfter}

// HookFunc is the callback signature stored in a hook slot.
//
// Returning an error aborts the remaining hooks of the slot and the
// persistence operation that triggered them.
type HookFunc func(ctx context.Context, payload any) error

type hookSlot struct {
	phase Phase
	event HookEvent
}

// Hooks is the per-schema hook registry.
//
// Copies of a schema (see Model.WithTenant) share the same registry, so a
// hook registered once fires for every handle on the model.
type Hooks struct {
	mutex    sync.RWMutex
	slotList map[hookSlot][]HookFunc
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{slotList: make(map[hookSlot][]HookFunc)}
}

// Before registers fn to run before the given event.
func (h *Hooks) Before(event HookEvent, fn HookFunc) {
	h.add(PhaseBefore, event, fn)
}

// After registers fn to run after the given event.
func (h *Hooks) After(event HookEvent, fn HookFunc) {
	h.add(PhaseAfter, event, fn)
}

// Len returns how many callbacks are registered in a slot.
func (h *Hooks) Len(phase Phase, event HookEvent) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.slotList[hookSlot{phase, event}])
}

func (h *Hooks) add(phase Phase, event HookEvent, fn HookFunc) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	slot := hookSlot{phase, event}
	h.slotList[slot] = append(h.slotList[slot], fn)
}

// exec runs every callback of a slot in registration order.
func (h *Hooks) exec(ctx context.Context, phase Phase, event HookEvent, payload any) error {
	h.mutex.RLock()
	fnList := append([]HookFunc(nil), h.slotList[hookSlot{phase, event}]...)
	h.mutex.RUnlock()

	for _, fn := range fnList {
		if err := fn(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}
