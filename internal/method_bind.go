package objbind

import (
	"hash/maphash"
	"sync/atomic"

	xsync "github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"
)

// MethodLookup resolves a method against the native registry.
type MethodLookup interface {
	LookupMethod(class, method StringName, hash uint64) (CallTarget, error)
}

type methodKey struct {
	class  StringName
	method StringName
	hash   uint64
}

func hashMethodKey(_ maphash.Seed, k methodKey) uint64 {
	h := k.class.hash
	h ^= k.method.hash + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	h ^= k.hash + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	return h
}

// bindCache memoizes resolved methods for the lifetime of an engine. A
// failed lookup is not stored, so the error is reported again on every use.
type bindCache struct {
	lookup  MethodLookup
	targets *xsync.MapOf[methodKey, CallTarget]
	lookups atomic.Uint64
	log     *zap.Logger
}

func newBindCache(lookup MethodLookup, log *zap.Logger) *bindCache {
	return &bindCache{
		lookup:  lookup,
		targets: xsync.NewTypedMapOf[methodKey, CallTarget](hashMethodKey),
		log:     log,
	}
}

func (c *bindCache) resolve(key methodKey) (CallTarget, error) {
	if target, ok := c.targets.Load(key); ok {
		return target, nil
	}

	// Compute runs the lookup while holding the key's bucket, so goroutines
	// racing on the same method wait for the first lookup instead of
	// repeating it.
	var lookupErr error
	target, _ := c.targets.Compute(key, func(existing CallTarget, loaded bool) (CallTarget, bool) {
		if loaded {
			return existing, false
		}

		c.lookups.Add(1)
		target, err := c.lookup.LookupMethod(key.class, key.method, key.hash)
		if err != nil {
			lookupErr = err
			return nil, true
		}

		c.log.Debug("resolved method bind",
			zap.Stringer("class", key.class),
			zap.Stringer("method", key.method),
			zap.Uint64("hash", key.hash))

		return target, false
	})
	if lookupErr != nil {
		return nil, lookupErr
	}

	return target, nil
}

type boundTarget struct {
	owner  *engine
	target CallTarget
}

// MethodBind is the call-site cache of one native method. Generated code
// declares one per method and shares it between all calls; after the first
// call on an engine the target is a single atomic load away.
type MethodBind struct {
	class  StringName
	method StringName
	hash   uint64
	static bool
	cached atomic.Pointer[boundTarget]
}

func NewMethodBind(class, method string, hash uint64) *MethodBind {
	return &MethodBind{
		class:  Intern(class),
		method: Intern(method),
		hash:   hash,
	}
}

func NewStaticMethodBind(class, method string, hash uint64) *MethodBind {
	mb := NewMethodBind(class, method, hash)
	mb.static = true
	return mb
}

func (mb *MethodBind) Class() StringName {
	return mb.class
}

func (mb *MethodBind) Method() StringName {
	return mb.method
}

func (mb *MethodBind) Hash() uint64 {
	return mb.hash
}

func (mb *MethodBind) IsStatic() bool {
	return mb.static
}

func (mb *MethodBind) String() string {
	return mb.class.String() + "." + mb.method.String()
}

// Resolve returns the call target of the method on the given engine.
func (mb *MethodBind) Resolve(e IEngine) (CallTarget, error) {
	internalEngine, err := engineOf(e)
	if err != nil {
		return nil, err
	}
	return mb.resolve(internalEngine)
}

func (mb *MethodBind) resolve(e *engine) (CallTarget, error) {
	if bound := mb.cached.Load(); bound != nil && bound.owner == e {
		return bound.target, nil
	}

	target, err := e.binds.resolve(methodKey{
		class:  mb.class,
		method: mb.method,
		hash:   mb.hash,
	})
	if err != nil {
		return nil, err
	}

	mb.cached.Store(&boundTarget{owner: e, target: target})
	return target, nil
}
