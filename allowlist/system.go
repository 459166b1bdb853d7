package allowlist

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// UpdateEvent describes a batch of entries that were created or re-pointed.
type UpdateEvent struct {
	Collection common.Address
	TokenIDs   []uint64
	Holder     common.Address
}

// OnUpdateFunc receives AllowListUpdated events. May be nil.
type OnUpdateFunc func(UpdateEvent)

// System provides the concurrency-safe, access-controlled layer over the
// Registry. Writes go through a mutex and are restricted to the registered
// controller; reads of the full view are lock-free via an atomic snapshot.
//
// The trusted-sender flags are ephemeral per-pool booleans the enforcement
// peer (router or engine) sets for exactly the duration of one swap call.
// A flag that survives a call is a security defect, not a cleanliness issue,
// so callers must clear it on every exit path.
type System struct {
	mu         sync.RWMutex
	registry   *Registry
	controller common.Address
	enforcer   common.Address
	trusted    map[common.Address]bool
	cachedView atomic.Pointer[[]EntryView]
	onUpdate   OnUpdateFunc
}

// NewSystem creates a System owned by controller. The enforcer is the only
// party allowed to toggle trusted-sender flags. Zero addresses are rejected
// at construction time, never discovered at runtime.
func NewSystem(controller, enforcer common.Address, onUpdate OnUpdateFunc) (*System, error) {
	if controller == (common.Address{}) || enforcer == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	s := &System{
		registry:   NewRegistry(),
		controller: controller,
		enforcer:   enforcer,
		trusted:    make(map[common.Address]bool),
		onUpdate:   onUpdate,
	}
	view := s.registry.view()
	s.cachedView.Store(&view)
	return s, nil
}

// updateCachedView refreshes the atomic snapshot. Must be called with the
// write lock held.
func (s *System) updateCachedView() {
	view := s.registry.view()
	s.cachedView.Store(&view)
}

func (s *System) emit(event UpdateEvent) {
	if s.onUpdate != nil {
		s.onUpdate(event)
	}
}

// Set creates or overwrites a single entry.
func (s *System) Set(caller, collection common.Address, tokenID uint64, holder common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	s.registry.set(collection, tokenID, holder)
	s.updateCachedView()
	s.emit(UpdateEvent{Collection: collection, TokenIDs: []uint64{tokenID}, Holder: holder})
	return nil
}

// Unset removes a single entry, leaving the token unconstrained. Removing an
// absent key is a no-op and emits no event.
func (s *System) Unset(caller, collection common.Address, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	if _, ok := s.registry.holderOf(collection, tokenID); !ok {
		return nil
	}
	s.registry.unset(collection, tokenID)
	s.updateCachedView()
	s.emit(UpdateEvent{Collection: collection, TokenIDs: []uint64{tokenID}})
	return nil
}

// SetBulk points every given token id at the same holder in one atomic batch.
func (s *System) SetBulk(caller, collection common.Address, tokenIDs []uint64, holder common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	s.registry.setBulk(collection, tokenIDs, holder)
	s.updateCachedView()
	s.emit(UpdateEvent{Collection: collection, TokenIDs: tokenIDs, Holder: holder})
	return nil
}

// SetBulkPerID points each token id at its own holder.
func (s *System) SetBulkPerID(caller, collection common.Address, tokenIDs []uint64, holders []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	s.registry.setBulkPerID(collection, tokenIDs, holders)
	s.updateCachedView()
	for i, id := range tokenIDs {
		s.emit(UpdateEvent{Collection: collection, TokenIDs: []uint64{id}, Holder: holders[i]})
	}
	return nil
}

// ReassignAll re-points a bounded page of populated entries at newHolder.
// Used when migrating to a new router address without rewriting the entire
// list in one call.
func (s *System) ReassignAll(caller, newHolder common.Address, offset, limit uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	if err := s.registry.reassignAll(newHolder, offset, limit); err != nil {
		return err
	}
	s.updateCachedView()
	s.emit(UpdateEvent{Holder: newHolder})
	return nil
}

// HolderOf returns the expected holder for a token, if an entry exists.
func (s *System) HolderOf(collection common.Address, tokenID uint64) (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.holderOf(collection, tokenID)
}

// Len returns the number of populated entries, the pagination bound for
// ReassignAll.
func (s *System) Len() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.length()
}

// View returns a snapshot of every entry in pagination order. The returned
// slice is owned by the caller.
func (s *System) View() []EntryView {
	cached := s.cachedView.Load()
	if cached == nil || len(*cached) == 0 {
		return nil
	}
	views := make([]EntryView, len(*cached))
	copy(views, *cached)
	return views
}

// SetTrustedSender toggles the ephemeral trusted flag for a pool. Only the
// controller and the enforcement peer may call it, and a set flag must
// bracket exactly one swap call.
func (s *System) SetTrustedSender(caller, pool common.Address, trusted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.enforcer && caller != s.controller {
		return ErrNotEnforcer
	}
	if trusted {
		s.trusted[pool] = true
	} else {
		delete(s.trusted, pool)
	}
	return nil
}

// IsTrustedSender reports whether the pool is currently inside an
// enforcer-brokered swap.
func (s *System) IsTrustedSender(pool common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trusted[pool]
}

// SetController hands control of the list to a new address.
func (s *System) SetController(caller, newController common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	if newController == (common.Address{}) {
		return ErrZeroAddress
	}
	s.controller = newController
	return nil
}

// SetEnforcer re-points the enforcement peer, e.g. on a hook version change.
func (s *System) SetEnforcer(caller, newEnforcer common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.controller {
		return ErrNotController
	}
	if newEnforcer == (common.Address{}) {
		return ErrZeroAddress
	}
	s.enforcer = newEnforcer
	return nil
}
