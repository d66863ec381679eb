package objbind

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jerbob92/wazero-objbind/types"

	"go.uber.org/zap"
)

// VirtualFunc implements a virtual method in Go. The arguments have been
// checked against the declared types.
type VirtualFunc func(ctx context.Context, self *Object, args []Variant) (Variant, error)

// VirtualMethod is one entry of a managed class's dispatch table.
type VirtualMethod struct {
	Name   StringName
	Args   []VariantType
	Return VariantType
	Fn     VirtualFunc
}

// ManagedClass is a class defined in Go that extends a native class and
// overrides some of its virtual methods. Overrides are declared up front
// and the class is then finalized; dispatch only memoizes lookups on
// finalized classes.
type ManagedClass struct {
	name   StringName
	native StringName
	parent *ManagedClass

	mu       sync.RWMutex
	declared map[StringName]*VirtualMethod
	ready    atomic.Bool

	overrides *overrideRecord
}

// NewManagedClass declares a managed class. With a parent the native base is
// inherited from it.
func NewManagedClass(name string, native string, parent *ManagedClass) *ManagedClass {
	c := &ManagedClass{
		name:      Intern(name),
		native:    Intern(native),
		parent:    parent,
		declared:  map[StringName]*VirtualMethod{},
		overrides: newOverrideRecord(),
	}

	if parent != nil {
		c.native = parent.native
	}

	return c
}

func (c *ManagedClass) Name() StringName {
	return c.name
}

// Native returns the native class the managed class extends.
func (c *ManagedClass) Native() StringName {
	return c.native
}

func (c *ManagedClass) Parent() *ManagedClass {
	return c.parent
}

func (c *ManagedClass) IsFinalized() bool {
	return c.ready.Load()
}

// Override adds a method to the dispatch table.
func (c *ManagedClass) Override(method VirtualMethod) error {
	if method.Fn == nil {
		return fmt.Errorf("could not override %s.%s: no implementation", c.name, method.Name)
	}

	for i := range method.Args {
		if !method.Args[i].IsValid() {
			return fmt.Errorf("could not override %s.%s: argument %d has invalid type %s", c.name, method.Name, i, method.Args[i])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() {
		return fmt.Errorf("could not override %s.%s: class is finalized", c.name, method.Name)
	}

	if _, ok := c.declared[method.Name]; ok {
		return fmt.Errorf("could not override %s.%s: already overridden", c.name, method.Name)
	}

	c.declared[method.Name] = &method
	return nil
}

// Finalize closes the dispatch table.
func (c *ManagedClass) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready.Store(true)
}

// findOverride walks the class chain from the most derived class. The
// second result reports whether every class of the chain is finalized.
func (c *ManagedClass) findOverride(name StringName) (*VirtualMethod, bool) {
	var found *VirtualMethod
	finalized := true

	for current := c; current != nil; current = current.parent {
		current.mu.RLock()
		if !current.ready.Load() {
			finalized = false
		}
		if found == nil {
			found = current.declared[name]
		}
		current.mu.RUnlock()
	}

	return found, finalized
}

func (e *engine) HasOverride(class *ManagedClass, name StringName) bool {
	if class == nil {
		return false
	}
	return class.overrides.lookup(class, name) != nil
}

// CallVirtual dispatches a virtual call to the managed override of the
// object, if there is one. The second result reports whether the call was
// handled; when it is false the native implementation should run.
func (e *engine) CallVirtual(ctx context.Context, handle types.Handle, name StringName, args []Variant) (Variant, bool, error) {
	ret, _, handled, err := e.dispatchVirtual(ctx, handle, name, len(args), func() ([]Variant, error) {
		return args, nil
	})
	return ret, handled, err
}

// dispatchVirtual checks for an override before decoding anything, so the
// common case of no override costs a cache lookup only.
func (e *engine) dispatchVirtual(ctx context.Context, handle types.Handle, name StringName, argc int, decode func() ([]Variant, error)) (Variant, *VirtualMethod, bool, error) {
	e.stats.virtualDispatches.Add(1)

	obj, ok := e.objects.Load(uint64(handle))
	if !ok || obj.managed == nil {
		return NilVariant(), nil, false, nil
	}

	method := obj.managed.overrides.lookup(obj.managed, name)
	if method == nil {
		return NilVariant(), nil, false, nil
	}

	if argc != len(method.Args) {
		err := &ArgumentArityMismatch{
			Kind:     MemberMethod,
			Class:    obj.managed.name.String(),
			Member:   name.String(),
			Expected: len(method.Args),
			Actual:   argc,
		}
		e.log.Warn("virtual call arity mismatch", zap.Error(err))
		return NilVariant(), method, true, err
	}

	e.stats.virtualDecodes.Add(1)
	args, err := decode()
	if err != nil {
		return NilVariant(), method, true, fmt.Errorf("could not decode arguments of %s.%s: %w", obj.managed.name, name, err)
	}

	for i := range args {
		if err := checkVariantType(args[i], method.Args[i]); err != nil {
			return NilVariant(), method, true, fmt.Errorf("argument %d of %s.%s: %w", i, obj.managed.name, name, err)
		}
	}

	ret, err := method.Fn(ctx, obj, args)
	if err != nil {
		return NilVariant(), method, true, fmt.Errorf("virtual %s.%s failed: %w", obj.managed.name, name, err)
	}

	if method.Return != VariantNil {
		if err := checkVariantType(ret, method.Return); err != nil {
			return NilVariant(), method, true, fmt.Errorf("return value of %s.%s: %w", obj.managed.name, name, err)
		}
	}

	return ret, method, true, nil
}

func checkVariantType(v Variant, expected VariantType) error {
	if v.Type == expected.Dynamic() {
		return nil
	}
	// A null object travels as a nil variant.
	if expected == VariantObject && v.Type == VariantNil {
		return nil
	}
	return fmt.Errorf("got %s, expected %s", v.Type, expected)
}
