package objbind

import (
	"context"
	"errors"
	"fmt"

	"github.com/jerbob92/wazero-objbind/types"

	"github.com/tetratelabs/wazero/api"
)

func (e *engine) readName(mem api.Memory, ptr, length uint32) (StringName, error) {
	if length == 0 {
		return StringName{}, nil
	}

	data, ok := mem.Read(ptr, length)
	if !ok {
		return StringName{}, fmt.Errorf("could not read name at %#x", ptr)
	}

	return Intern(string(data)), nil
}

func (e *engine) readCString(mem api.Memory, ptr uint32) (string, error) {
	str := []byte{}
	for {
		b, ok := mem.ReadByte(ptr)
		if !ok {
			return "", fmt.Errorf("could not read c string at %#x", ptr)
		}
		if b == 0 {
			break
		}
		str = append(str, b)
		ptr++
	}
	return string(str), nil
}

// parseWasmSignature parses a signature such as "vij": the first character
// is the result type and the rest are the parameter types, with i for i32,
// j for i64, f for f32, d for f64 and v for no result.
func parseWasmSignature(signature string) ([]api.ValueType, []api.ValueType, error) {
	if signature == "" {
		return nil, nil, errors.New("empty signature")
	}

	valueType := func(c byte) (api.ValueType, error) {
		switch c {
		case 'i':
			return api.ValueTypeI32, nil
		case 'j':
			return api.ValueTypeI64, nil
		case 'f':
			return api.ValueTypeF32, nil
		case 'd':
			return api.ValueTypeF64, nil
		}
		return 0, fmt.Errorf("unknown type %q in signature %q", c, signature)
	}

	results := []api.ValueType{}
	if signature[0] != 'v' {
		result, err := valueType(signature[0])
		if err != nil {
			return nil, nil, err
		}
		results = append(results, result)
	}

	params := make([]api.ValueType, 0, len(signature)-1)
	for i := 1; i < len(signature); i++ {
		param, err := valueType(signature[i])
		if err != nil {
			return nil, nil, err
		}
		params = append(params, param)
	}

	return params, results, nil
}

func mustEngine(ctx context.Context, mod api.Module) *engine {
	e, err := engineOf(MustGetEngineFromContext(ctx, mod))
	if err != nil {
		panic(fmt.Errorf("could not get objbind engine from context: %w", err))
	}
	return e
}

var RegisterClass = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)

	name, err := engine.readName(mod.Memory(), api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	if err != nil {
		panic(fmt.Errorf("could not read class name: %w", err))
	}

	parent, err := engine.readName(mod.Memory(), api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	if err != nil {
		panic(fmt.Errorf("could not read parent name: %w", err))
	}

	err = engine.classDB.RegisterClass(name, parent)
	if err != nil {
		panic(err)
	}
})

var RegisterMethod = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)

	class, err := engine.readName(mod.Memory(), api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	if err != nil {
		panic(fmt.Errorf("could not read class name: %w", err))
	}

	name, err := engine.readName(mod.Memory(), api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	if err != nil {
		panic(fmt.Errorf("could not read method name: %w", err))
	}

	hash := stack[4]
	fnIndex := api.DecodeU32(stack[5])

	signature, err := engine.readCString(mod.Memory(), api.DecodeU32(stack[6]))
	if err != nil {
		panic(fmt.Errorf("could not read signature: %w", err))
	}

	flags := MethodFlags(api.DecodeU32(stack[7]))

	params, results, err := parseWasmSignature(signature)
	if err != nil {
		panic(fmt.Errorf("could not register method %s.%s: %w", class, name, err))
	}

	target, err := engine.lookupFunction(mod, fnIndex, params, results)
	if err != nil {
		panic(fmt.Errorf("could not register method %s.%s: %w", class, name, err))
	}

	err = engine.classDB.RegisterMethod(NativeMethod{
		Class:  class,
		Name:   name,
		Hash:   hash,
		Flags:  flags,
		Target: target,
	})
	if err != nil {
		panic(err)
	}
})

var RegisterProperty = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)

	names := make([]StringName, 4)
	for i := range names {
		name, err := engine.readName(mod.Memory(), api.DecodeU32(stack[i*2]), api.DecodeU32(stack[i*2+1]))
		if err != nil {
			panic(fmt.Errorf("could not read property name %d: %w", i, err))
		}
		names[i] = name
	}

	err := engine.classDB.RegisterProperty(NativeProperty{
		Class:  names[0],
		Name:   names[1],
		Getter: names[2],
		Setter: names[3],
	})
	if err != nil {
		panic(err)
	}
})

var RegisterSignal = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)

	class, err := engine.readName(mod.Memory(), api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	if err != nil {
		panic(fmt.Errorf("could not read class name: %w", err))
	}

	name, err := engine.readName(mod.Memory(), api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	if err != nil {
		panic(fmt.Errorf("could not read signal name: %w", err))
	}

	argCount := api.DecodeU32(stack[4])
	argTypesPtr := api.DecodeU32(stack[5])

	args := make([]VariantType, argCount)
	for i := uint32(0); i < argCount; i++ {
		val, ok := mod.Memory().ReadUint32Le(argTypesPtr + i*4)
		if !ok {
			panic(fmt.Errorf("could not read type of argument %d of signal %s.%s", i, class, name))
		}
		args[i] = VariantType(val)
	}

	err = engine.classDB.RegisterSignal(NativeSignal{
		Class: class,
		Name:  name,
		Args:  args,
	})
	if err != nil {
		panic(err)
	}
})

var EmitSignal = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)

	handle := types.Handle(stack[0])
	signal, err := engine.readName(mod.Memory(), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if err != nil {
		panic(fmt.Errorf("could not read signal name: %w", err))
	}

	// Nothing to decode when no trampoline listens.
	if !engine.hasConnections(handle, signal) {
		return
	}

	args, err := engine.ReadVariants(mod.Memory(), api.DecodeU32(stack[4]), api.DecodeU32(stack[3]))
	if err != nil {
		panic(fmt.Errorf("could not read arguments of signal %s: %w", signal, err))
	}

	err = engine.EmitSignal(ctx, handle, signal, args)
	if err != nil {
		panic(err)
	}
})

var CallVirtual = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)

	handle := types.Handle(stack[0])
	name, err := engine.readName(mod.Memory(), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if err != nil {
		panic(fmt.Errorf("could not read method name: %w", err))
	}

	argCount := api.DecodeU32(stack[3])
	argsPtr := api.DecodeU32(stack[4])
	retPtr := api.DecodeU32(stack[5])

	ret, method, handled, err := engine.dispatchVirtual(ctx, handle, name, int(argCount), func() ([]Variant, error) {
		return engine.ReadVariants(mod.Memory(), argsPtr, argCount)
	})
	if err != nil {
		panic(err)
	}

	if !handled {
		stack[0] = api.EncodeI32(0)
		return
	}

	if method.Return != VariantNil && retPtr != 0 {
		err = engine.WriteVariant(ctx, mod.Memory(), retPtr, ret)
		if err != nil {
			panic(fmt.Errorf("could not write return value of %s: %w", name, err))
		}
	}

	stack[0] = api.EncodeI32(1)
})

var ObjectFreed = api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
	engine := mustEngine(ctx, mod)
	engine.ObjectFreed(types.Handle(stack[0]))
})
