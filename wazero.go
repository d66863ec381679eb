package objbind

import (
	"context"

	internal "github.com/jerbob92/wazero-objbind/internal"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

type wazeroEngine struct {
	internal.IEngine
	config internal.IEngineConfig
}

func (we *wazeroEngine) Unwrap() internal.IEngine {
	return we.IEngine
}

func (we *wazeroEngine) NewFunctionExporterForModule(guest wazero.CompiledModule) FunctionExporter {
	return &functionExporter{
		config: we.config,
		guest:  guest,
	}
}

// FunctionExporter configures the host functions the native runtime imports
// to register its classes and to call into Go.
type FunctionExporter interface {
	// ExportFunctions builds functions to export with a
	// wazero.HostModuleBuilder, named after the configured host module name
	// ("objbind" by default).
	ExportFunctions(wazero.HostModuleBuilder) error
}

type functionExporter struct {
	config internal.IEngineConfig
	guest  wazero.CompiledModule
}

type unexportedFunctionError struct {
	name string
}

func (e unexportedFunctionError) Error() string {
	return "you need to export the \"" + e.name + "\" function from the native module, or configure an allocator with WithAllocator"
}

// ExportFunctions implements FunctionExporter.ExportFunctions
func (e functionExporter) ExportFunctions(b wazero.HostModuleBuilder) error {
	// Memory that changes owner goes through malloc and free unless the
	// configuration brings its own allocator.
	if e.config.Allocator() == nil {
		exportedFunctions := e.guest.ExportedFunctions()
		for _, requiredFunction := range []string{"malloc", "free"} {
			if _, ok := exportedFunctions[requiredFunction]; !ok {
				return unexportedFunctionError{
					name: requiredFunction,
				}
			}
		}
	}

	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64

	b.NewFunctionBuilder().
		WithName("objbind_register_class").
		WithParameterNames("name", "nameLen", "parent", "parentLen").
		WithGoModuleFunction(internal.RegisterClass, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{}).
		Export("objbind_register_class")

	b.NewFunctionBuilder().
		WithName("objbind_register_method").
		WithParameterNames("class", "classLen", "name", "nameLen", "hash", "fn", "signature", "flags").
		WithGoModuleFunction(internal.RegisterMethod, []api.ValueType{i32, i32, i32, i32, i64, i32, i32, i32}, []api.ValueType{}).
		Export("objbind_register_method")

	b.NewFunctionBuilder().
		WithName("objbind_register_property").
		WithParameterNames("class", "classLen", "name", "nameLen", "getter", "getterLen", "setter", "setterLen").
		WithGoModuleFunction(internal.RegisterProperty, []api.ValueType{i32, i32, i32, i32, i32, i32, i32, i32}, []api.ValueType{}).
		Export("objbind_register_property")

	b.NewFunctionBuilder().
		WithName("objbind_register_signal").
		WithParameterNames("class", "classLen", "name", "nameLen", "argCount", "argTypes").
		WithGoModuleFunction(internal.RegisterSignal, []api.ValueType{i32, i32, i32, i32, i32, i32}, []api.ValueType{}).
		Export("objbind_register_signal")

	b.NewFunctionBuilder().
		WithName("objbind_emit_signal").
		WithParameterNames("handle", "name", "nameLen", "argCount", "args").
		WithGoModuleFunction(internal.EmitSignal, []api.ValueType{i64, i32, i32, i32, i32}, []api.ValueType{}).
		Export("objbind_emit_signal")

	b.NewFunctionBuilder().
		WithName("objbind_call_virtual").
		WithParameterNames("handle", "name", "nameLen", "argCount", "args", "ret").
		WithGoModuleFunction(internal.CallVirtual, []api.ValueType{i64, i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		Export("objbind_call_virtual")

	b.NewFunctionBuilder().
		WithName("objbind_object_freed").
		WithParameterNames("handle").
		WithGoModuleFunction(internal.ObjectFreed, []api.ValueType{i64}, []api.ValueType{}).
		Export("objbind_object_freed")

	return nil
}

// Instantiate builds the host module for guest and instantiates it in the
// runtime, ready for the guest to be instantiated with a context the engine
// is attached to.
func Instantiate(ctx context.Context, r wazero.Runtime, e Engine, guest wazero.CompiledModule) (api.Module, error) {
	b := r.NewHostModuleBuilder(e.Config().HostModuleName())
	if err := e.NewFunctionExporterForModule(guest).ExportFunctions(b); err != nil {
		return nil, err
	}
	return b.Instantiate(ctx)
}
