package objbind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jerbob92/wazero-objbind/types"

	xsync "github.com/puzpuzpuz/xsync/v2"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental/table"
	"go.uber.org/zap"
)

type IEngine interface {
	Attach(ctx context.Context) context.Context
	SetModule(ctx context.Context, mod api.Module) error
	Module() api.Module
	Config() IEngineConfig
	ClassDB() *ClassDB
	Stats() Stats

	Wrap(handle types.Handle, class StringName) *Object
	Bind(handle types.Handle, class *ManagedClass) (*Object, error)
	LookupObject(handle types.Handle) (*Object, bool)
	ObjectFreed(handle types.Handle)

	CallVirtual(ctx context.Context, handle types.Handle, name StringName, args []Variant) (Variant, bool, error)
	HasOverride(class *ManagedClass, name StringName) bool

	Connect(ctx context.Context, obj *Object, signal StringName, trampoline Trampoline) error
	Disconnect(ctx context.Context, obj *Object, signal StringName, delegate any) error
	EmitSignal(ctx context.Context, handle types.Handle, signal StringName, args []Variant) error
	ConnectionCount(obj *Object, signal StringName) int
}

// Stats are counters of the work done by an engine.
type Stats struct {
	NativeLookups     uint64
	NativeCalls       uint64
	VirtualDispatches uint64
	VirtualDecodes    uint64
	SignalDeliveries  uint64
	Objects           int
}

type engineStats struct {
	nativeCalls       atomic.Uint64
	virtualDispatches atomic.Uint64
	virtualDecodes    atomic.Uint64
	signalDeliveries  atomic.Uint64
}

type lookupFunctionFunc func(mod api.Module, index uint32, params, results []api.ValueType) (CallTarget, error)

type engine struct {
	config  IEngineConfig
	log     *zap.Logger
	mod     api.Module
	modMu   sync.Mutex
	classDB *ClassDB
	binds   *bindCache
	objects *xsync.MapOf[uint64, *Object]
	signals *signalRegistry
	stats   engineStats

	stack      *callStack
	allocator  Allocator
	subscriber SignalSubscriber

	lookupFunction lookupFunctionFunc
}

func GetEngineFromContext(ctx context.Context) (IEngine, error) {
	raw := ctx.Value(EngineKey{})
	if raw == nil {
		return nil, fmt.Errorf("objbind engine not found in context")
	}

	value, ok := raw.(IEngine)
	if !ok {
		return nil, fmt.Errorf("context value %v not of type %T", raw, new(IEngine))
	}

	return value, nil
}

func MustGetEngineFromContext(ctx context.Context, mod api.Module) IEngine {
	e, err := GetEngineFromContext(ctx)
	if err != nil {
		panic(fmt.Errorf("could not get objbind engine from context: %w, make sure to create an engine with objbind.CreateEngine() and to attach it to the context with \"ctx = engine.Attach(ctx)\"", err))
	}

	if mod != nil {
		if err := e.SetModule(ctx, mod); err != nil {
			panic(fmt.Errorf("could not get objbind engine from context: %w", err))
		}
	}

	return e
}

// unwrapper is implemented by engines that decorate an IEngine.
type unwrapper interface {
	Unwrap() IEngine
}

func engineOf(e IEngine) (*engine, error) {
	for e != nil {
		switch val := e.(type) {
		case *engine:
			return val, nil
		case unwrapper:
			e = val.Unwrap()
		default:
			return nil, fmt.Errorf("engine of type %T was not created with CreateEngine", e)
		}
	}
	return nil, errors.New("no engine")
}

// EngineKey Use this key to add the engine to your context:
// ctx = context.WithValue(ctx, objbind.EngineKey{}, engine)
type EngineKey struct{}

// CreateEngine returns a new engine. The native runtime is attached with
// SetModule, which host functions do on their first call.
func CreateEngine(config IEngineConfig) IEngine {
	log := config.Logger()
	classDB := NewClassDB()

	e := &engine{
		config:         config,
		log:            log,
		classDB:        classDB,
		binds:          newBindCache(classDB, log),
		objects:        xsync.NewIntegerMapOf[uint64, *Object](),
		signals:        newSignalRegistry(),
		allocator:      config.Allocator(),
		subscriber:     config.SignalSubscriber(),
		lookupFunction: lookupTableFunction,
	}

	return e
}

func (e *engine) Attach(ctx context.Context) context.Context {
	return context.WithValue(ctx, EngineKey{}, e)
}

func (e *engine) Config() IEngineConfig {
	return e.config
}

func (e *engine) ClassDB() *ClassDB {
	return e.classDB
}

func (e *engine) Module() api.Module {
	e.modMu.Lock()
	defer e.modMu.Unlock()
	return e.mod
}

// SetModule attaches the native runtime. An engine serves exactly one
// module instance.
func (e *engine) SetModule(ctx context.Context, mod api.Module) error {
	e.modMu.Lock()
	defer e.modMu.Unlock()

	if e.mod != nil {
		if e.mod != mod {
			return errors.New("this engine was created for another wazero api.Module")
		}
		return nil
	}

	e.mod = mod
	if e.allocator == nil {
		e.allocator = newModuleAllocator(mod)
	}
	if e.subscriber == nil {
		e.subscriber = newModuleSubscriber(e)
	}

	e.log.Debug("attached native module", zap.String("module", mod.Name()))
	return nil
}

func (e *engine) memory() (api.Memory, error) {
	mod := e.Module()
	if mod == nil {
		return nil, ErrNoModule
	}
	return mod.Memory(), nil
}

// callStack returns the scratch stack, allocating it on first use.
func (e *engine) callStack(ctx context.Context) (*callStack, error) {
	e.modMu.Lock()
	defer e.modMu.Unlock()

	if e.stack != nil {
		return e.stack, nil
	}

	if e.mod == nil {
		return nil, ErrNoModule
	}

	base, size, ok := e.config.ScratchRegion()
	if !ok {
		size = e.config.ScratchSize()
		ptr, err := e.allocator.Alloc(ctx, size)
		if err != nil {
			return nil, fmt.Errorf("could not allocate scratch stack: %w", err)
		}
		base = ptr
	}

	e.stack = newCallStack(base, size)
	e.log.Debug("allocated scratch stack", zap.Uint32("base", base), zap.Uint32("size", size))
	return e.stack, nil
}

func (e *engine) Stats() Stats {
	return Stats{
		NativeLookups:     e.binds.lookups.Load(),
		NativeCalls:       e.stats.nativeCalls.Load(),
		VirtualDispatches: e.stats.virtualDispatches.Load(),
		VirtualDecodes:    e.stats.virtualDecodes.Load(),
		SignalDeliveries:  e.stats.signalDeliveries.Load(),
		Objects:           e.objects.Size(),
	}
}

// attached returns the allocator and subscriber, which SetModule fills in.
func (e *engine) attached() (Allocator, SignalSubscriber) {
	e.modMu.Lock()
	defer e.modMu.Unlock()
	return e.allocator, e.subscriber
}

func (e *engine) free(ctx context.Context, ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	allocator, _ := e.attached()
	if allocator == nil {
		return ErrNoAllocator
	}
	return allocator.Free(ctx, ptr)
}

func (e *engine) alloc(ctx context.Context, size uint32) (uint32, error) {
	allocator, _ := e.attached()
	if allocator == nil {
		return 0, ErrNoAllocator
	}
	return allocator.Alloc(ctx, size)
}

// lookupTableFunction wraps a function of the guest's indirect function
// table. table.LookupFunction panics on a bad index or a signature mismatch.
func lookupTableFunction(mod api.Module, index uint32, params, results []api.ValueType) (target CallTarget, err error) {
	defer func() {
		if recoverErr := recover(); recoverErr != nil {
			realError, ok := recoverErr.(error)
			if ok {
				err = fmt.Errorf("could not look up function %d: %w", index, realError)
				return
			}
			err = fmt.Errorf("could not look up function %d: %v", index, recoverErr)
		}
	}()

	return table.LookupFunction(mod, 0, index, params, results), nil
}
