package objbind

import (
	"context"
	"fmt"
	"hash/maphash"
	"reflect"

	"github.com/jerbob92/wazero-objbind/types"

	xsync "github.com/puzpuzpuz/xsync/v2"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// SignalFunc receives the arguments of one emission, already checked against
// the trampoline's arity.
type SignalFunc func(ctx context.Context, args []Variant) error

// Trampoline adapts a native signal emission to a Go callback. Delegate is
// the identity used to disconnect it again and must be comparable.
type Trampoline struct {
	Delegate any
	Arity    int
	Invoke   SignalFunc
}

type signalKey struct {
	handle uint64
	signal StringName
}

func hashSignalKey(_ maphash.Seed, k signalKey) uint64 {
	h := k.signal.hash
	h ^= k.handle + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	return h
}

// signalRegistry holds the trampolines per (object, signal) in connection
// order. The slices are never modified in place, so an emission can iterate
// a snapshot while callbacks connect or disconnect.
type signalRegistry struct {
	connections *xsync.MapOf[signalKey, []*Trampoline]
}

func newSignalRegistry() *signalRegistry {
	return &signalRegistry{
		connections: xsync.NewTypedMapOf[signalKey, []*Trampoline](hashSignalKey),
	}
}

func (r *signalRegistry) add(key signalKey, t *Trampoline) (first bool) {
	r.connections.Compute(key, func(existing []*Trampoline, loaded bool) ([]*Trampoline, bool) {
		first = len(existing) == 0
		next := make([]*Trampoline, len(existing), len(existing)+1)
		copy(next, existing)
		return append(next, t), false
	})
	return first
}

// remove drops the most recently connected trampoline with the delegate.
func (r *signalRegistry) remove(key signalKey, delegate any) (removed bool, last bool) {
	r.connections.Compute(key, func(existing []*Trampoline, loaded bool) ([]*Trampoline, bool) {
		if !loaded {
			return nil, true
		}

		for i := len(existing) - 1; i >= 0; i-- {
			if existing[i].Delegate != delegate {
				continue
			}

			removed = true
			if len(existing) == 1 {
				last = true
				return nil, true
			}

			next := make([]*Trampoline, 0, len(existing)-1)
			next = append(next, existing[:i]...)
			next = append(next, existing[i+1:]...)
			return next, false
		}

		return existing, false
	})
	return removed, last
}

func (r *signalRegistry) removeObject(handle uint64) int {
	removed := 0
	r.connections.Range(func(key signalKey, trampolines []*Trampoline) bool {
		if key.handle == handle {
			r.connections.Delete(key)
			removed += len(trampolines)
		}
		return true
	})
	return removed
}

func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}

func (e *engine) Connect(ctx context.Context, obj *Object, signal StringName, trampoline Trampoline) error {
	handle, err := obj.receiver()
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", signal, err)
	}

	decl, err := e.classDB.Signal(obj.class, signal)
	if err != nil {
		return err
	}

	if trampoline.Invoke == nil {
		return fmt.Errorf("could not connect to %s.%s: trampoline has no callback", obj.class, signal)
	}

	if trampoline.Arity != len(decl.Args) {
		return &ArgumentArityMismatch{
			Kind:     MemberSignal,
			Class:    obj.class.String(),
			Member:   signal.String(),
			Expected: len(decl.Args),
			Actual:   trampoline.Arity,
		}
	}

	if !isComparable(trampoline.Delegate) {
		return fmt.Errorf("could not connect to %s.%s: %w", obj.class, signal, ErrDelegateNotComparable)
	}

	key := signalKey{handle: handle, signal: signal}
	first := e.signals.add(key, &trampoline)
	_, subscriber := e.attached()
	if !first || subscriber == nil {
		return nil
	}

	if err := subscriber.Subscribe(ctx, handle, signal); err != nil {
		e.signals.remove(key, trampoline.Delegate)
		return fmt.Errorf("could not subscribe to %s.%s: %w", obj.class, signal, err)
	}

	e.log.Debug("subscribed to signal",
		zap.Uint64("handle", handle),
		zap.Stringer("signal", signal))

	return nil
}

// Disconnect removes one connection of delegate. Disconnecting a delegate
// that is not connected does nothing.
func (e *engine) Disconnect(ctx context.Context, obj *Object, signal StringName, delegate any) error {
	if !obj.IsValid() || !isComparable(delegate) {
		return nil
	}

	handle := uint64(obj.Handle())
	removed, last := e.signals.remove(signalKey{handle: handle, signal: signal}, delegate)
	_, subscriber := e.attached()
	if !removed || !last || subscriber == nil {
		return nil
	}

	if err := subscriber.Unsubscribe(ctx, handle, signal); err != nil {
		return fmt.Errorf("could not unsubscribe from %s.%s: %w", obj.class, signal, err)
	}

	e.log.Debug("unsubscribed from signal",
		zap.Uint64("handle", handle),
		zap.Stringer("signal", signal))

	return nil
}

func (e *engine) ConnectionCount(obj *Object, signal StringName) int {
	if obj == nil {
		return 0
	}
	trampolines, _ := e.signals.connections.Load(signalKey{handle: uint64(obj.Handle()), signal: signal})
	return len(trampolines)
}

func (e *engine) hasConnections(handle types.Handle, signal StringName) bool {
	trampolines, _ := e.signals.connections.Load(signalKey{handle: uint64(handle), signal: signal})
	return len(trampolines) > 0
}

// EmitSignal delivers an emission to the trampolines in connection order.
// The trampolines connected when the emission starts are the ones invoked.
func (e *engine) EmitSignal(ctx context.Context, handle types.Handle, signal StringName, args []Variant) error {
	trampolines, ok := e.signals.connections.Load(signalKey{handle: uint64(handle), signal: signal})
	if !ok {
		return nil
	}

	for _, trampoline := range trampolines {
		if len(args) != trampoline.Arity {
			class := ObjectClass
			if obj, ok := e.objects.Load(uint64(handle)); ok {
				class = obj.class
			}
			err := &ArgumentArityMismatch{
				Kind:     MemberSignal,
				Class:    class.String(),
				Member:   signal.String(),
				Expected: trampoline.Arity,
				Actual:   len(args),
			}
			e.log.Warn("signal arity mismatch", zap.Error(err))
			return err
		}

		e.stats.signalDeliveries.Add(1)
		if err := trampoline.Invoke(ctx, args); err != nil {
			return fmt.Errorf("signal %s handler failed: %w", signal, err)
		}
	}

	return nil
}

// moduleSubscriber forwards subscriptions to the guest's
// objbind_signal_subscribe and objbind_signal_unsubscribe exports. A guest
// that exports neither emits every signal unconditionally.
type moduleSubscriber struct {
	engine *engine
}

func newModuleSubscriber(e *engine) SignalSubscriber {
	return &moduleSubscriber{engine: e}
}

func (s *moduleSubscriber) Subscribe(ctx context.Context, handle uint64, signal StringName) error {
	return s.call(ctx, "objbind_signal_subscribe", handle, signal)
}

func (s *moduleSubscriber) Unsubscribe(ctx context.Context, handle uint64, signal StringName) error {
	return s.call(ctx, "objbind_signal_unsubscribe", handle, signal)
}

func (s *moduleSubscriber) call(ctx context.Context, export string, handle uint64, signal StringName) error {
	mod := s.engine.Module()
	if mod == nil {
		return ErrNoModule
	}

	fn := mod.ExportedFunction(export)
	if fn == nil {
		return nil
	}

	frame, err := s.engine.newFrame(ctx)
	if err != nil {
		return err
	}
	defer frame.Release()

	name := signal.String()
	ptr, err := frame.Alloc(uint32(len(name)), 1)
	if err != nil {
		return err
	}

	if !frame.Memory().Write(ptr, []byte(name)) {
		return fmt.Errorf("could not write signal name to memory at %#x", ptr)
	}

	_, err = fn.Call(ctx, api.EncodeI64(int64(handle)), api.EncodeU32(ptr), api.EncodeU32(uint32(len(name))))
	return err
}
