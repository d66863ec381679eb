package objbind

import (
	"context"

	internal "github.com/jerbob92/wazero-objbind/internal"
	"github.com/jerbob92/wazero-objbind/types"

	"github.com/tetratelabs/wazero/api"
)

// aggregateCodec passes values by address. Arguments are written into the
// call frame and borrowed by native code for the duration of the call;
// results are written by native code into a slot in the frame.
type aggregateCodec[T any] struct {
	variantType VariantType
	size        uint32
	read        func(mem api.Memory, ptr uint32) (T, error)
	write       func(mem api.Memory, ptr uint32, v T) error
}

func (c aggregateCodec[T]) Type() VariantType { return c.variantType }

func (c aggregateCodec[T]) SlotSize() uint32 { return c.size }

func (c aggregateCodec[T]) Encode(f *Frame, v T) (uint64, error) {
	ptr, err := f.Alloc(c.size, 4)
	if err != nil {
		return 0, err
	}

	if err := c.write(f.Memory(), ptr, v); err != nil {
		return 0, err
	}

	return api.EncodeU32(ptr), nil
}

func (c aggregateCodec[T]) Decode(_ context.Context, f *Frame, wire uint64) (T, error) {
	return c.read(f.Memory(), api.DecodeU32(wire))
}

func (c aggregateCodec[T]) FromVariant(v Variant) (T, error) {
	return fromVariant[T](c.variantType, v)
}

func (c aggregateCodec[T]) ToVariant(v T) Variant {
	return Variant{Type: c.variantType, Value: v}
}

var (
	Vector2 Codec[types.Vector2] = aggregateCodec[types.Vector2]{
		variantType: VariantVector2,
		size:        internal.SizeVector2,
		read:        internal.ReadVector2,
		write:       internal.WriteVector2,
	}

	Vector3 Codec[types.Vector3] = aggregateCodec[types.Vector3]{
		variantType: VariantVector3,
		size:        internal.SizeVector3,
		read:        internal.ReadVector3,
		write:       internal.WriteVector3,
	}

	Color Codec[types.Color] = aggregateCodec[types.Color]{
		variantType: VariantColor,
		size:        internal.SizeColor,
		read:        internal.ReadColor,
		write:       internal.WriteColor,
	}

	Rect2 Codec[types.Rect2] = aggregateCodec[types.Rect2]{
		variantType: VariantRect2,
		size:        internal.SizeRect2,
		read:        internal.ReadRect2,
		write:       internal.WriteRect2,
	}

	Transform2D Codec[types.Transform2D] = aggregateCodec[types.Transform2D]{
		variantType: VariantTransform2D,
		size:        internal.SizeTransform2D,
		read:        internal.ReadTransform2D,
		write:       internal.WriteTransform2D,
	}
)
