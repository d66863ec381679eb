package objbind

import (
	"fmt"
	"sync/atomic"

	"github.com/jerbob92/wazero-objbind/types"

	"go.uber.org/zap"
)

// Object is the managed wrapper of a native object. The handle is borrowed:
// this layer never frees it. When the native side reports the object as
// freed the wrapper is invalidated and every further call through it fails
// with ErrHandleInvalidated.
type Object struct {
	engine  *engine
	class   StringName
	managed *ManagedClass
	handle  atomic.Uint64
	freed   atomic.Bool
}

func (o *Object) Handle() types.Handle {
	if o == nil {
		return 0
	}
	return types.Handle(o.handle.Load())
}

// Class returns the native class of the object.
func (o *Object) Class() StringName {
	return o.class
}

// Managed returns the managed class that overrides virtual methods of the
// object, if any.
func (o *Object) Managed() *ManagedClass {
	return o.managed
}

func (o *Object) Engine() IEngine {
	return o.engine
}

func (o *Object) IsValid() bool {
	return o != nil && o.handle.Load() != 0 && !o.freed.Load()
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.freed.Load() {
		return fmt.Sprintf("%s(freed)", o.class)
	}
	return fmt.Sprintf("%s(%#x)", o.class, o.handle.Load())
}

// receiver returns the handle to pass as receiver of an instance call.
func (o *Object) receiver() (uint64, error) {
	if o == nil {
		return 0, ErrNullReceiver
	}
	if o.freed.Load() {
		return 0, fmt.Errorf("%s: %w", o.class, ErrHandleInvalidated)
	}
	handle := o.handle.Load()
	if handle == 0 {
		return 0, ErrNullReceiver
	}
	return handle, nil
}

func (o *Object) invalidate() {
	o.freed.Store(true)
	o.handle.Store(0)
}

// Wrap returns the wrapper of a native object, creating it on first use.
func (e *engine) Wrap(handle types.Handle, class StringName) *Object {
	if handle == 0 {
		return nil
	}

	obj, _ := e.objects.LoadOrCompute(uint64(handle), func() *Object {
		obj := &Object{
			engine: e,
			class:  class,
		}
		obj.handle.Store(uint64(handle))
		return obj
	})

	return obj
}

// Bind registers a native object created for a managed class, so virtual
// calls on it are dispatched to the class's overrides.
func (e *engine) Bind(handle types.Handle, class *ManagedClass) (*Object, error) {
	if handle == 0 {
		return nil, ErrNullReceiver
	}

	if class == nil {
		return nil, fmt.Errorf("could not bind object %#x: no managed class", uint64(handle))
	}

	if !e.classDB.HasClass(class.native) {
		return nil, &BindResolutionError{
			Kind:   MemberClass,
			Class:  class.native.String(),
			Reason: fmt.Sprintf("native base of managed class %s is not registered", class.name),
		}
	}

	obj := &Object{
		engine:  e,
		class:   class.native,
		managed: class,
	}
	obj.handle.Store(uint64(handle))

	if _, loaded := e.objects.LoadOrStore(uint64(handle), obj); loaded {
		return nil, fmt.Errorf("could not bind object %#x: already bound", uint64(handle))
	}

	return obj, nil
}

func (e *engine) LookupObject(handle types.Handle) (*Object, bool) {
	return e.objects.Load(uint64(handle))
}

// objectFor returns the known wrapper of handle, or wraps it as a plain
// Object.
func (e *engine) objectFor(handle types.Handle) *Object {
	if obj, ok := e.objects.Load(uint64(handle)); ok {
		return obj
	}
	return e.Wrap(handle, ObjectClass)
}

// ObjectFreed is called when the native side destroys an object.
func (e *engine) ObjectFreed(handle types.Handle) {
	obj, ok := e.objects.LoadAndDelete(uint64(handle))
	if ok {
		obj.invalidate()
	}

	removed := e.signals.removeObject(uint64(handle))

	e.log.Debug("native object freed",
		zap.Uint64("handle", uint64(handle)),
		zap.Bool("wrapped", ok),
		zap.Int("connections", removed))
}
