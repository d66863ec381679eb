package objbind

import (
	"context"

	internal "github.com/jerbob92/wazero-objbind/internal"
)

// Property reads and writes a native property through its accessor methods.
// The accessors are looked up in the native property table and resolved like
// any other method, once per engine.
type Property[T any] struct {
	bind  *internal.PropertyBind
	codec Codec[T]
}

// NewProperty declares a property of class. The accessor signatures follow
// from the codec: a getter without arguments returning the value and a
// setter taking it.
func NewProperty[T any](class, name string, codec Codec[T]) *Property[T] {
	return &Property[T]{
		bind: internal.NewPropertyBind(
			class,
			name,
			internal.Signature(false, codec.Type()),
			internal.Signature(false, internal.VariantNil, codec.Type()),
		),
		codec: codec,
	}
}

func (p *Property[T]) Name() StringName {
	return p.bind.Name()
}

func (p *Property[T]) Get(ctx context.Context, obj *Object) (T, error) {
	getter, err := p.bind.Getter(obj)
	if err != nil {
		var zero T
		return zero, err
	}
	return Call0(ctx, getter, obj, p.codec)
}

// Set fails with ErrReadOnlyProperty when the property has no setter.
func (p *Property[T]) Set(ctx context.Context, obj *Object, v T) error {
	setter, err := p.bind.Setter(obj)
	if err != nil {
		return err
	}
	return CallVoid1(ctx, setter, obj, p.codec, v)
}
