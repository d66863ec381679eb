package objbind

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// VariantType is the engine's type tag for values crossing the boundary,
// both inside variant records and in compatibility signatures.
type VariantType uint32

const (
	VariantNil VariantType = iota
	VariantBool
	VariantInt
	VariantFloat
	VariantString
	VariantVector2
	VariantVector3
	VariantColor
	VariantRect2
	VariantTransform2D
	VariantObject
	VariantPackedInt32Array

	// VariantInt32 and VariantFloat32 are the 32-bit wire forms of int and
	// float. They only appear in signatures; variant records carry them as
	// VariantInt and VariantFloat.
	VariantInt32
	VariantFloat32

	variantTypeMax
)

var variantTypeNames = [variantTypeMax]string{
	VariantNil:              "Nil",
	VariantBool:             "bool",
	VariantInt:              "int",
	VariantFloat:            "float",
	VariantString:           "String",
	VariantVector2:          "Vector2",
	VariantVector3:          "Vector3",
	VariantColor:            "Color",
	VariantRect2:            "Rect2",
	VariantTransform2D:      "Transform2D",
	VariantObject:           "Object",
	VariantPackedInt32Array: "PackedInt32Array",
	VariantInt32:            "int32",
	VariantFloat32:          "float32",
}

func (vt VariantType) String() string {
	if vt >= variantTypeMax {
		return fmt.Sprintf("VariantType(%d)", uint32(vt))
	}
	return variantTypeNames[vt]
}

func (vt VariantType) IsValid() bool {
	return vt < variantTypeMax
}

// Dynamic returns the tag values of this type carry in variant records.
func (vt VariantType) Dynamic() VariantType {
	switch vt {
	case VariantInt32:
		return VariantInt
	case VariantFloat32:
		return VariantFloat
	}
	return vt
}

// ParseVariantType maps a type name as written in API descriptions to its tag.
func ParseVariantType(name string) (VariantType, error) {
	if name == "" || name == "void" {
		return VariantNil, nil
	}
	for i := range variantTypeNames {
		if variantTypeNames[i] == name {
			return VariantType(i), nil
		}
	}
	return VariantNil, fmt.Errorf("unknown variant type %q", name)
}

// SignatureVersion is mixed into every compatibility signature. Bump it when
// the wire layout of any type changes so stale bindings fail to resolve.
const SignatureVersion = 2

// Signature computes the compatibility signature of a method from its shape:
// whether it is static, its return type and its argument types in order.
func Signature(static bool, ret VariantType, args ...VariantType) uint64 {
	h := fnv.New64a()
	var buf [4]byte

	write := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	write(SignatureVersion)
	if static {
		write(1)
	} else {
		write(0)
	}
	write(uint32(ret))
	write(uint32(len(args)))
	for i := range args {
		write(uint32(args[i]))
	}

	return h.Sum64()
}
