package objbind

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Codec converts values of one Go type to and from their wire form. Encode
// produces an argument, which may borrow memory from the call frame. Decode
// reads a return value; values returned through an owned record are copied
// and the record is freed. FromVariant and ToVariant convert to and from the
// dynamic form used by virtual calls and signals.
type Codec[T any] interface {
	Type() VariantType
	Encode(f *Frame, v T) (uint64, error)
	Decode(ctx context.Context, f *Frame, wire uint64) (T, error)
	FromVariant(v Variant) (T, error)
	ToVariant(v T) Variant
}

// slotCodec is implemented by codecs whose values are returned through a
// slot allocated by the caller. The pointer to the slot is passed as last
// parameter and the call has no result.
type slotCodec interface {
	SlotSize() uint32
}

func variantTypeError(expected VariantType, v Variant) error {
	return fmt.Errorf("expected a %s variant, got %s", expected, v.Type)
}

func fromVariant[T any](expected VariantType, v Variant) (T, error) {
	var zero T
	if v.Type != expected {
		return zero, variantTypeError(expected, v)
	}
	val, ok := v.Value.(T)
	if !ok {
		return zero, fmt.Errorf("%s variant holds a %T", v.Type, v.Value)
	}
	return val, nil
}

type boolCodec struct{}

func (boolCodec) Type() VariantType { return VariantBool }

func (boolCodec) Encode(_ *Frame, v bool) (uint64, error) {
	if v {
		return api.EncodeI32(1), nil
	}
	return api.EncodeI32(0), nil
}

func (boolCodec) Decode(_ context.Context, _ *Frame, wire uint64) (bool, error) {
	return api.DecodeI32(wire) != 0, nil
}

func (boolCodec) FromVariant(v Variant) (bool, error) {
	return fromVariant[bool](VariantBool, v)
}

func (boolCodec) ToVariant(v bool) Variant {
	return Variant{Type: VariantBool, Value: v}
}

type intCodec struct{}

func (intCodec) Type() VariantType { return VariantInt }

func (intCodec) Encode(_ *Frame, v int64) (uint64, error) {
	return api.EncodeI64(v), nil
}

func (intCodec) Decode(_ context.Context, _ *Frame, wire uint64) (int64, error) {
	return int64(wire), nil
}

func (intCodec) FromVariant(v Variant) (int64, error) {
	return fromVariant[int64](VariantInt, v)
}

func (intCodec) ToVariant(v int64) Variant {
	return Variant{Type: VariantInt, Value: v}
}

// int32Codec is used for enums and flags, which travel as i32.
type int32Codec struct{}

func (int32Codec) Type() VariantType { return VariantInt32 }

func (int32Codec) Encode(_ *Frame, v int32) (uint64, error) {
	return api.EncodeI32(v), nil
}

func (int32Codec) Decode(_ context.Context, _ *Frame, wire uint64) (int32, error) {
	return api.DecodeI32(wire), nil
}

func (int32Codec) FromVariant(v Variant) (int32, error) {
	i, err := fromVariant[int64](VariantInt, v)
	if err != nil {
		return 0, err
	}
	return int32(i), nil
}

func (int32Codec) ToVariant(v int32) Variant {
	return Variant{Type: VariantInt, Value: int64(v)}
}

type floatCodec struct{}

func (floatCodec) Type() VariantType { return VariantFloat }

func (floatCodec) Encode(_ *Frame, v float64) (uint64, error) {
	return api.EncodeF64(v), nil
}

func (floatCodec) Decode(_ context.Context, _ *Frame, wire uint64) (float64, error) {
	return api.DecodeF64(wire), nil
}

func (floatCodec) FromVariant(v Variant) (float64, error) {
	return fromVariant[float64](VariantFloat, v)
}

func (floatCodec) ToVariant(v float64) Variant {
	return Variant{Type: VariantFloat, Value: v}
}

type float32Codec struct{}

func (float32Codec) Type() VariantType { return VariantFloat32 }

func (float32Codec) Encode(_ *Frame, v float32) (uint64, error) {
	return api.EncodeF32(v), nil
}

func (float32Codec) Decode(_ context.Context, _ *Frame, wire uint64) (float32, error) {
	return api.DecodeF32(wire), nil
}

func (float32Codec) FromVariant(v Variant) (float32, error) {
	f, err := fromVariant[float64](VariantFloat, v)
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

func (float32Codec) ToVariant(v float32) Variant {
	return Variant{Type: VariantFloat, Value: float64(v)}
}

type stringCodec struct{}

func (stringCodec) Type() VariantType { return VariantString }

func (stringCodec) Encode(f *Frame, v string) (uint64, error) {
	ptr, err := f.WriteString(v)
	if err != nil {
		return 0, err
	}
	return api.EncodeU32(ptr), nil
}

// Decode takes ownership of the returned string record.
func (stringCodec) Decode(ctx context.Context, f *Frame, wire uint64) (string, error) {
	return f.TakeString(ctx, api.DecodeU32(wire))
}

func (stringCodec) FromVariant(v Variant) (string, error) {
	return fromVariant[string](VariantString, v)
}

func (stringCodec) ToVariant(v string) Variant {
	return Variant{Type: VariantString, Value: v}
}

type packedInt32ArrayCodec struct{}

func (packedInt32ArrayCodec) Type() VariantType { return VariantPackedInt32Array }

func (packedInt32ArrayCodec) Encode(f *Frame, v []int32) (uint64, error) {
	ptr, err := f.WriteInt32Slice(v)
	if err != nil {
		return 0, err
	}
	return api.EncodeU32(ptr), nil
}

func (packedInt32ArrayCodec) Decode(ctx context.Context, f *Frame, wire uint64) ([]int32, error) {
	return f.TakeInt32Slice(ctx, api.DecodeU32(wire))
}

func (packedInt32ArrayCodec) FromVariant(v Variant) ([]int32, error) {
	return fromVariant[[]int32](VariantPackedInt32Array, v)
}

func (packedInt32ArrayCodec) ToVariant(v []int32) Variant {
	return Variant{Type: VariantPackedInt32Array, Value: v}
}

var (
	Bool             Codec[bool]    = boolCodec{}
	Int              Codec[int64]   = intCodec{}
	Int32            Codec[int32]   = int32Codec{}
	Float            Codec[float64] = floatCodec{}
	Float32          Codec[float32] = float32Codec{}
	String           Codec[string]  = stringCodec{}
	PackedInt32Array Codec[[]int32] = packedInt32ArrayCodec{}
)
