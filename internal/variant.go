package objbind

import (
	"context"
	"fmt"

	"github.com/jerbob92/wazero-objbind/types"

	"github.com/tetratelabs/wazero/api"
)

// VariantSize is the size of a variant record: a u32 type tag, u32 padding
// and a 16-byte payload. Payloads that do not fit (strings, packed arrays and
// Transform2D) are stored as a pointer to a separate record.
const VariantSize = 24

const variantPayload = 8

// ObjectClass is the class used for objects that native code passes before
// they were wrapped with a more specific class.
var ObjectClass = Intern("Object")

// Variant is a dynamically typed value crossing the boundary through virtual
// calls and signals. Value holds bool, int64, float64, string, the types
// aggregates, *Object or []int32, matching Type. Object variants written to
// native memory may also hold a raw types.Handle.
type Variant struct {
	Type  VariantType
	Value any
}

func NilVariant() Variant {
	return Variant{Type: VariantNil}
}

// NewVariant wraps a Go value, inferring the variant type.
func NewVariant(v any) (Variant, error) {
	switch val := v.(type) {
	case nil:
		return NilVariant(), nil
	case bool:
		return Variant{Type: VariantBool, Value: val}, nil
	case int:
		return Variant{Type: VariantInt, Value: int64(val)}, nil
	case int32:
		return Variant{Type: VariantInt, Value: int64(val)}, nil
	case int64:
		return Variant{Type: VariantInt, Value: val}, nil
	case float32:
		return Variant{Type: VariantFloat, Value: float64(val)}, nil
	case float64:
		return Variant{Type: VariantFloat, Value: val}, nil
	case string:
		return Variant{Type: VariantString, Value: val}, nil
	case types.Vector2:
		return Variant{Type: VariantVector2, Value: val}, nil
	case types.Vector3:
		return Variant{Type: VariantVector3, Value: val}, nil
	case types.Color:
		return Variant{Type: VariantColor, Value: val}, nil
	case types.Rect2:
		return Variant{Type: VariantRect2, Value: val}, nil
	case types.Transform2D:
		return Variant{Type: VariantTransform2D, Value: val}, nil
	case *Object:
		return Variant{Type: VariantObject, Value: val}, nil
	case []int32:
		return Variant{Type: VariantPackedInt32Array, Value: val}, nil
	}
	return Variant{}, fmt.Errorf("no variant type for Go type %T", v)
}

// ReadVariant decodes a variant record owned by native code.
func (e *engine) ReadVariant(mem api.Memory, ptr uint32) (Variant, error) {
	tag, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return Variant{}, fmt.Errorf("could not read variant type at %#x", ptr)
	}

	vt := VariantType(tag)
	payload := ptr + variantPayload

	var err error
	var value any

	switch vt {
	case VariantNil:
	case VariantBool:
		v, ok := mem.ReadUint32Le(payload)
		if !ok {
			return Variant{}, fmt.Errorf("could not read bool at %#x", payload)
		}
		value = v != 0
	case VariantInt:
		v, ok := mem.ReadUint64Le(payload)
		if !ok {
			return Variant{}, fmt.Errorf("could not read int at %#x", payload)
		}
		value = int64(v)
	case VariantFloat:
		v, ok := mem.ReadFloat64Le(payload)
		if !ok {
			return Variant{}, fmt.Errorf("could not read float at %#x", payload)
		}
		value = v
	case VariantString:
		var recordPtr uint32
		recordPtr, err = readPointer(mem, payload)
		if err == nil {
			value, err = ReadString(mem, recordPtr)
		}
	case VariantVector2:
		value, err = ReadVector2(mem, payload)
	case VariantVector3:
		value, err = ReadVector3(mem, payload)
	case VariantColor:
		value, err = ReadColor(mem, payload)
	case VariantRect2:
		value, err = ReadRect2(mem, payload)
	case VariantTransform2D:
		var recordPtr uint32
		recordPtr, err = readPointer(mem, payload)
		if err == nil {
			value, err = ReadTransform2D(mem, recordPtr)
		}
	case VariantObject:
		handle, ok := mem.ReadUint64Le(payload)
		if !ok {
			return Variant{}, fmt.Errorf("could not read object handle at %#x", payload)
		}
		if handle != 0 {
			value = e.objectFor(types.Handle(handle))
		}
	case VariantPackedInt32Array:
		var recordPtr uint32
		recordPtr, err = readPointer(mem, payload)
		if err == nil {
			value, err = ReadInt32Slice(mem, recordPtr)
		}
	default:
		return Variant{}, fmt.Errorf("unknown variant type %d at %#x", tag, ptr)
	}

	if err != nil {
		return Variant{}, fmt.Errorf("could not read %s variant: %w", vt, err)
	}

	return Variant{Type: vt, Value: value}, nil
}

// ReadVariants decodes count consecutive variant records.
func (e *engine) ReadVariants(mem api.Memory, ptr uint32, count uint32) ([]Variant, error) {
	args := make([]Variant, count)
	for i := uint32(0); i < count; i++ {
		v, err := e.ReadVariant(mem, ptr+i*VariantSize)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

// WriteVariant encodes v into the record at ptr. Records that do not fit the
// payload are allocated with the engine allocator and become owned by the
// native side.
func (e *engine) WriteVariant(ctx context.Context, mem api.Memory, ptr uint32, v Variant) error {
	if !v.Type.IsValid() || v.Type.Dynamic() != v.Type {
		return fmt.Errorf("could not write variant: invalid type %s", v.Type)
	}

	if !mem.Write(ptr, make([]byte, VariantSize)) {
		return fmt.Errorf("could not clear variant at %#x", ptr)
	}

	if !mem.WriteUint32Le(ptr, uint32(v.Type)) {
		return fmt.Errorf("could not write variant type at %#x", ptr)
	}

	payload := ptr + variantPayload
	var ok = true
	var err error

	switch v.Type {
	case VariantNil:
	case VariantBool:
		b, isType := v.Value.(bool)
		if !isType {
			return variantValueError(v)
		}
		var raw uint32
		if b {
			raw = 1
		}
		ok = mem.WriteUint32Le(payload, raw)
	case VariantInt:
		i, isType := v.Value.(int64)
		if !isType {
			return variantValueError(v)
		}
		ok = mem.WriteUint64Le(payload, uint64(i))
	case VariantFloat:
		f, isType := v.Value.(float64)
		if !isType {
			return variantValueError(v)
		}
		ok = mem.WriteFloat64Le(payload, f)
	case VariantString:
		s, isType := v.Value.(string)
		if !isType {
			return variantValueError(v)
		}
		var record []byte
		record, err = encodeStringRecord(s)
		if err == nil {
			err = e.writeOwnedRecord(ctx, mem, payload, record)
		}
	case VariantVector2:
		val, isType := v.Value.(types.Vector2)
		if !isType {
			return variantValueError(v)
		}
		err = WriteVector2(mem, payload, val)
	case VariantVector3:
		val, isType := v.Value.(types.Vector3)
		if !isType {
			return variantValueError(v)
		}
		err = WriteVector3(mem, payload, val)
	case VariantColor:
		val, isType := v.Value.(types.Color)
		if !isType {
			return variantValueError(v)
		}
		err = WriteColor(mem, payload, val)
	case VariantRect2:
		val, isType := v.Value.(types.Rect2)
		if !isType {
			return variantValueError(v)
		}
		err = WriteRect2(mem, payload, val)
	case VariantTransform2D:
		val, isType := v.Value.(types.Transform2D)
		if !isType {
			return variantValueError(v)
		}
		var recordPtr uint32
		recordPtr, err = e.alloc(ctx, SizeTransform2D)
		if err == nil {
			err = WriteTransform2D(mem, recordPtr, val)
		}
		if err == nil {
			ok = mem.WriteUint32Le(payload, recordPtr)
		}
	case VariantObject:
		var handle uint64
		switch val := v.Value.(type) {
		case nil:
		case *Object:
			handle = uint64(val.Handle())
		case types.Handle:
			handle = uint64(val)
		default:
			return variantValueError(v)
		}
		ok = mem.WriteUint64Le(payload, handle)
	case VariantPackedInt32Array:
		values, isType := v.Value.([]int32)
		if !isType {
			return variantValueError(v)
		}
		err = e.writeOwnedRecord(ctx, mem, payload, encodeInt32SliceRecord(values))
	}

	if err != nil {
		return fmt.Errorf("could not write %s variant: %w", v.Type, err)
	}
	if !ok {
		return fmt.Errorf("could not write %s variant at %#x", v.Type, ptr)
	}

	return nil
}

func (e *engine) writeOwnedRecord(ctx context.Context, mem api.Memory, at uint32, record []byte) error {
	recordPtr, err := e.alloc(ctx, uint32(len(record)))
	if err != nil {
		return err
	}

	if !mem.Write(recordPtr, record) {
		return fmt.Errorf("could not write record at %#x", recordPtr)
	}

	if !mem.WriteUint32Le(at, recordPtr) {
		return fmt.Errorf("could not write record pointer at %#x", at)
	}

	return nil
}

func readPointer(mem api.Memory, ptr uint32) (uint32, error) {
	v, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return 0, fmt.Errorf("could not read pointer at %#x", ptr)
	}
	return v, nil
}

func variantValueError(v Variant) error {
	return fmt.Errorf("variant of type %s holds a %T", v.Type, v.Value)
}
