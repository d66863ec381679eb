package objbind

import (
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	xsync "github.com/puzpuzpuz/xsync/v2"
)

// overrideRecord memoizes, per managed class, which virtual methods have a
// managed override somewhere in the class chain. Both bitsets are indexed by
// StringName id.
type overrideRecord struct {
	mu      *xsync.RBMutex
	checked *bitset.BitSet
	present *bitset.BitSet
	methods map[uint32]*VirtualMethod
	walks   atomic.Uint64
}

func newOverrideRecord() *overrideRecord {
	return &overrideRecord{
		mu:      xsync.NewRBMutex(),
		checked: bitset.New(64),
		present: bitset.New(64),
		methods: map[uint32]*VirtualMethod{},
	}
}

// cached returns the memoized answer for name, if there is one.
func (r *overrideRecord) cached(name StringName) (method *VirtualMethod, present bool, ok bool) {
	id := uint(name.ID())

	tok := r.mu.RLock()
	defer r.mu.RUnlock(tok)

	if !r.checked.Test(id) {
		return nil, false, false
	}

	if !r.present.Test(id) {
		return nil, false, true
	}

	return r.methods[name.ID()], true, true
}

func (r *overrideRecord) lookup(class *ManagedClass, name StringName) *VirtualMethod {
	if method, _, ok := r.cached(name); ok {
		return method
	}

	r.walks.Add(1)
	method, finalized := class.findOverride(name)

	// Overrides may still be added to a class that is not finalized, so
	// nothing is memoized for it yet.
	if !finalized {
		return method
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uint(name.ID())
	r.checked.Set(id)
	if method != nil {
		r.present.Set(id)
		r.methods[name.ID()] = method
	}

	return method
}
