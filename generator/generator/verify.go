package generator

import (
	"context"
	"fmt"

	"github.com/jerbob92/wazero-objbind"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Verify instantiates the native runtime, lets it register its classes by
// calling initFunction and checks every described method against the
// registry. All mismatches are reported, not only the first.
func Verify(ctx context.Context, api *API, wasmData []byte, initFunction string, log *zap.Logger) error {
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return err
	}

	compiledModule, err := r.CompileModule(ctx, wasmData)
	if err != nil {
		return err
	}

	engine := objbind.CreateEngine(objbind.NewConfig().WithLogger(log))
	ctx = engine.Attach(ctx)

	if _, err := objbind.Instantiate(ctx, r, engine, compiledModule); err != nil {
		return err
	}

	mod, err := r.InstantiateModule(ctx, compiledModule, wazero.NewModuleConfig().WithStartFunctions())
	if err != nil {
		return err
	}

	if err := engine.SetModule(ctx, mod); err != nil {
		return err
	}

	initFn := mod.ExportedFunction(initFunction)
	if initFn == nil {
		return fmt.Errorf("the native module does not export %s", initFunction)
	}

	if _, err := initFn.Call(ctx); err != nil {
		return fmt.Errorf("could not call %s: %w", initFunction, err)
	}

	return api.check(engine.ClassDB(), log)
}

func (a *API) check(db *objbind.ClassDB, log *zap.Logger) error {
	var errs error
	for _, class := range a.Classes {
		className := objbind.Intern(class.Name)
		if !db.HasClass(className) {
			errs = multierr.Append(errs, fmt.Errorf("class %s is not registered", class.Name))
			continue
		}

		for _, method := range class.Methods {
			native, err := db.Method(className, objbind.Intern(method.Name))
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}

			expected := a.Hash(method)
			if native.Hash != expected {
				errs = multierr.Append(errs, fmt.Errorf("method %s.%s: described with signature %#016x, registered with %#016x", class.Name, method.Name, expected, native.Hash))
				continue
			}

			log.Debug("verified method", zap.String("class", class.Name), zap.String("method", method.Name))
		}

		for _, property := range class.Properties {
			native, err := db.Property(className, objbind.Intern(property.Name))
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if native.IsReadOnly() != property.ReadOnly {
				errs = multierr.Append(errs, fmt.Errorf("property %s.%s: read-only is %t in the description but %t in the registry", class.Name, property.Name, property.ReadOnly, native.IsReadOnly()))
			}
		}

		for _, signal := range class.Signals {
			native, err := db.Signal(className, objbind.Intern(signal.Name))
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if len(native.Args) != len(signal.Args) {
				errs = multierr.Append(errs, fmt.Errorf("signal %s.%s: described with %d arguments, registered with %d", class.Name, signal.Name, len(signal.Args), len(native.Args)))
			}
		}
	}

	return errs
}
