package objbind

import (
	"context"
	"fmt"

	internal "github.com/jerbob92/wazero-objbind/internal"
	"github.com/jerbob92/wazero-objbind/types"

	"github.com/tetratelabs/wazero/api"
)

type handleCodec struct{}

func (handleCodec) Type() VariantType { return VariantObject }

func (handleCodec) Encode(_ *Frame, v types.Handle) (uint64, error) {
	return api.EncodeI64(int64(v)), nil
}

func (handleCodec) Decode(_ context.Context, _ *Frame, wire uint64) (types.Handle, error) {
	return types.Handle(wire), nil
}

func (handleCodec) FromVariant(v Variant) (types.Handle, error) {
	switch val := v.Value.(type) {
	case nil:
		if v.Type == VariantNil || v.Type == VariantObject {
			return 0, nil
		}
	case types.Handle:
		if v.Type == VariantObject {
			return val, nil
		}
	case *Object:
		if v.Type == VariantObject {
			return val.Handle(), nil
		}
	}
	return 0, variantTypeError(VariantObject, v)
}

func (handleCodec) ToVariant(v types.Handle) Variant {
	if v == 0 {
		return Variant{Type: VariantNil}
	}
	return Variant{Type: VariantObject, Value: v}
}

// Handle passes raw native handles. Returned handles are borrowed.
var Handle Codec[types.Handle] = handleCodec{}

type objectCodec struct {
	class StringName
}

// Objects returns the codec for objects of the given native class. Objects
// travel as handles; a nil object is the zero handle.
func Objects(class string) Codec[*Object] {
	return objectCodec{class: internal.Intern(class)}
}

func (objectCodec) Type() VariantType { return VariantObject }

func (c objectCodec) Encode(_ *Frame, v *Object) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsValid() {
		return 0, fmt.Errorf("could not pass %s object: %w", c.class, ErrHandleInvalidated)
	}
	return api.EncodeI64(int64(v.Handle())), nil
}

func (c objectCodec) Decode(_ context.Context, f *Frame, wire uint64) (*Object, error) {
	if wire == 0 {
		return nil, nil
	}
	return f.Engine().Wrap(types.Handle(wire), c.class), nil
}

func (c objectCodec) FromVariant(v Variant) (*Object, error) {
	if v.Type == VariantNil || (v.Type == VariantObject && v.Value == nil) {
		return nil, nil
	}
	return fromVariant[*Object](VariantObject, v)
}

func (objectCodec) ToVariant(v *Object) Variant {
	if v == nil {
		return Variant{Type: VariantNil}
	}
	return Variant{Type: VariantObject, Value: v}
}
