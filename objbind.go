package objbind

import (
	"context"
	"fmt"

	internal "github.com/jerbob92/wazero-objbind/internal"
	"github.com/jerbob92/wazero-objbind/types"

	"go.uber.org/zap"
)

type (
	StringName    = internal.StringName
	MethodBind    = internal.MethodBind
	CallTarget    = internal.CallTarget
	Object        = internal.Object
	Variant       = internal.Variant
	VariantType   = internal.VariantType
	Frame         = internal.Frame
	ManagedClass  = internal.ManagedClass
	VirtualMethod = internal.VirtualMethod
	Trampoline    = internal.Trampoline
	ClassDB       = internal.ClassDB
	Stats         = internal.Stats

	BindResolutionError   = internal.BindResolutionError
	ArgumentArityMismatch = internal.ArgumentArityMismatch
)

// CallTargetFunc adapts a Go function to a CallTarget.
type CallTargetFunc = internal.CallTargetFunc

const (
	VariantNil              = internal.VariantNil
	VariantBool             = internal.VariantBool
	VariantInt              = internal.VariantInt
	VariantFloat            = internal.VariantFloat
	VariantString           = internal.VariantString
	VariantVector2          = internal.VariantVector2
	VariantVector3          = internal.VariantVector3
	VariantColor            = internal.VariantColor
	VariantRect2            = internal.VariantRect2
	VariantTransform2D      = internal.VariantTransform2D
	VariantObject           = internal.VariantObject
	VariantPackedInt32Array = internal.VariantPackedInt32Array
	VariantInt32            = internal.VariantInt32
	VariantFloat32          = internal.VariantFloat32
)

var (
	ErrNullReceiver          = internal.ErrNullReceiver
	ErrHandleInvalidated     = internal.ErrHandleInvalidated
	ErrReadOnlyProperty      = internal.ErrReadOnlyProperty
	ErrFrameOverflow         = internal.ErrFrameOverflow
	ErrNoModule              = internal.ErrNoModule
	ErrNoAllocator           = internal.ErrNoAllocator
	ErrDelegateNotComparable = internal.ErrDelegateNotComparable
)

func Intern(name string) StringName {
	return internal.Intern(name)
}

// ParseVariantType maps a type name as written in API descriptions to its
// tag. "void" and the empty name are VariantNil.
func ParseVariantType(name string) (VariantType, error) {
	return internal.ParseVariantType(name)
}

// Signature computes the compatibility signature of a method, as stored in
// the native registry.
func Signature(static bool, ret VariantType, args ...VariantType) uint64 {
	return internal.Signature(static, ret, args...)
}

func NewMethodBind(class, method string, hash uint64) *MethodBind {
	return internal.NewMethodBind(class, method, hash)
}

func NewStaticMethodBind(class, method string, hash uint64) *MethodBind {
	return internal.NewStaticMethodBind(class, method, hash)
}

// NewClass declares a managed class with its overrides and finalizes it.
func NewClass(name, native string, parent *ManagedClass, methods ...VirtualMethod) (*ManagedClass, error) {
	class := internal.NewManagedClass(name, native, parent)
	for i := range methods {
		if err := class.Override(methods[i]); err != nil {
			return nil, err
		}
	}
	class.Finalize()
	return class, nil
}

// BeginClass declares a managed class that stays open for overrides until
// Finalize is called on it.
func BeginClass(name, native string, parent *ManagedClass) *ManagedClass {
	return internal.NewManagedClass(name, native, parent)
}

// Construct calls a static native constructor and wraps the new object. With
// a managed class the object is bound to it, so its overrides are dispatched.
func Construct(ctx context.Context, constructor *MethodBind, class *ManagedClass) (*Object, error) {
	handle, err := CallStatic0(ctx, constructor, Handle)
	if err != nil {
		return nil, err
	}

	e, err := internal.GetEngineFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if handle == 0 {
		return nil, fmt.Errorf("constructor %s returned no object: %w", constructor, ErrNullReceiver)
	}

	if class == nil {
		return e.Wrap(handle, constructor.Class()), nil
	}

	return e.Bind(handle, class)
}

// Wrap returns the wrapper of a native object known by its handle.
func Wrap(ctx context.Context, handle types.Handle, class string) (*Object, error) {
	e, err := internal.GetEngineFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return e.Wrap(handle, internal.Intern(class)), nil
}

// SetLogger sets the logger of engines created without one. It must be
// called before the first engine is created.
func SetLogger(l *zap.Logger) {
	internal.SetLogger(l)
}
