package allowlist

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EntryView is an externally-safe snapshot of a single allow-list entry.
type EntryView struct {
	Collection common.Address `json:"collection"`
	TokenID    uint64         `json:"tokenId"`
	Holder     common.Address `json:"holder"`
}

type entryKey struct {
	collection common.Address
	tokenID    uint64
}

// Registry is a simple, non-thread-safe store mapping (collection, tokenID)
// to the address currently permitted to hold that token once it leaves a
// pool. Entries are kept in parallel slices in insertion order, which gives
// ReassignAll a stable pagination order, with a map layer separating the
// logical key from the physical index.
type Registry struct {
	collections []common.Address
	tokenIDs    []uint64
	holders     []common.Address

	keyToIndex map[entryKey]int
}

// NewRegistry creates a new, empty allow-list registry.
func NewRegistry() *Registry {
	return &Registry{
		keyToIndex: make(map[entryKey]int),
	}
}

// NewRegistryFromViews reconstructs a Registry from a snapshot. This is the
// primary mechanism for restoring state, e.g. when handing the list to a new
// router revision.
func NewRegistryFromViews(views []EntryView) *Registry {
	if len(views) == 0 {
		return NewRegistry()
	}

	r := &Registry{
		collections: make([]common.Address, len(views)),
		tokenIDs:    make([]uint64, len(views)),
		holders:     make([]common.Address, len(views)),
		keyToIndex:  make(map[entryKey]int, len(views)),
	}
	for i, v := range views {
		r.collections[i] = v.Collection
		r.tokenIDs[i] = v.TokenID
		r.holders[i] = v.Holder
		r.keyToIndex[entryKey{v.Collection, v.TokenID}] = i
	}
	return r
}

// set creates or overwrites a single entry. A previously-unset key grows the
// tracked length used as the pagination bound; overwrites do not.
func (r *Registry) set(collection common.Address, tokenID uint64, holder common.Address) {
	key := entryKey{collection, tokenID}
	if index, ok := r.keyToIndex[key]; ok {
		r.holders[index] = holder
		return
	}

	r.collections = append(r.collections, collection)
	r.tokenIDs = append(r.tokenIDs, tokenID)
	r.holders = append(r.holders, holder)
	r.keyToIndex[key] = len(r.holders) - 1
}

// setBulk points every given token id of a collection at the same holder.
func (r *Registry) setBulk(collection common.Address, tokenIDs []uint64, holder common.Address) {
	for _, id := range tokenIDs {
		r.set(collection, id, holder)
	}
}

// setBulkPerID points each token id at its own holder. It panics on
// mismatched input lengths: the caller has violated the function's contract.
func (r *Registry) setBulkPerID(collection common.Address, tokenIDs []uint64, holders []common.Address) {
	if len(tokenIDs) != len(holders) {
		panic(fmt.Sprintf("mismatched input lengths: %d token IDs and %d holders", len(tokenIDs), len(holders)))
	}
	for i, id := range tokenIDs {
		r.set(collection, id, holders[i])
	}
}

// unset removes an entry if present, shrinking the tracked length. The last
// entry swaps into the vacated slot, so removal reorders pagination but keeps
// the slices dense. Unknown keys are a no-op.
func (r *Registry) unset(collection common.Address, tokenID uint64) {
	key := entryKey{collection, tokenID}
	index, ok := r.keyToIndex[key]
	if !ok {
		return
	}

	last := len(r.holders) - 1
	if index != last {
		r.collections[index] = r.collections[last]
		r.tokenIDs[index] = r.tokenIDs[last]
		r.holders[index] = r.holders[last]
		r.keyToIndex[entryKey{r.collections[index], r.tokenIDs[index]}] = index
	}
	r.collections = r.collections[:last]
	r.tokenIDs = r.tokenIDs[:last]
	r.holders = r.holders[:last]
	delete(r.keyToIndex, key)
}

// reassignAll overwrites the holder of every populated entry in
// [offset, offset+limit), clamped to the entry count. Pagination bounds the
// per-call work when migrating a large list to a new router address.
func (r *Registry) reassignAll(newHolder common.Address, offset, limit uint64) error {
	length := uint64(len(r.holders))
	if offset >= length {
		return ErrOffsetOutOfRange
	}

	end := offset + limit
	if end > length || end < offset {
		end = length
	}
	for i := offset; i < end; i++ {
		r.holders[i] = newHolder
	}
	return nil
}

func (r *Registry) holderOf(collection common.Address, tokenID uint64) (common.Address, bool) {
	index, ok := r.keyToIndex[entryKey{collection, tokenID}]
	if !ok {
		return common.Address{}, false
	}
	return r.holders[index], true
}

func (r *Registry) length() uint64 {
	return uint64(len(r.holders))
}

// view returns a deep copy of every entry in pagination order.
func (r *Registry) view() []EntryView {
	if len(r.holders) == 0 {
		return nil
	}
	views := make([]EntryView, len(r.holders))
	for i := range r.holders {
		views[i] = EntryView{
			Collection: r.collections[i],
			TokenID:    r.tokenIDs[i],
			Holder:     r.holders[i],
		}
	}
	return views
}
