package objbind

import (
	"context"
	"fmt"
)

// Invocation is one native call under construction. The typed adapters push
// the encoded arguments, invoke, decode the result and End the invocation,
// which releases the call frame.
type Invocation struct {
	engine *engine
	bind   *MethodBind
	target CallTarget
	frame  *Frame
	params []uint64
}

// BeginCall starts an instance call on obj. The method is resolved before
// anything is written to guest memory, so a resolution failure never
// reaches native code.
func BeginCall(ctx context.Context, mb *MethodBind, obj *Object) (*Invocation, error) {
	if mb.IsStatic() {
		return nil, fmt.Errorf("could not call %s: method is static", mb)
	}

	receiver, err := obj.receiver()
	if err != nil {
		return nil, fmt.Errorf("could not call %s: %w", mb, err)
	}

	inv, err := begin(ctx, obj.engine, mb)
	if err != nil {
		return nil, err
	}

	inv.params = append(inv.params, receiver)
	return inv, nil
}

// BeginStaticCall starts a call without receiver on the engine attached to
// the context.
func BeginStaticCall(ctx context.Context, mb *MethodBind) (*Invocation, error) {
	if !mb.IsStatic() {
		return nil, fmt.Errorf("could not call %s: method needs a receiver", mb)
	}

	e, err := GetEngineFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not call %s: %w", mb, err)
	}

	internalEngine, err := engineOf(e)
	if err != nil {
		return nil, fmt.Errorf("could not call %s: %w", mb, err)
	}

	return begin(ctx, internalEngine, mb)
}

func begin(ctx context.Context, e *engine, mb *MethodBind) (*Invocation, error) {
	target, err := mb.resolve(e)
	if err != nil {
		return nil, err
	}

	frame, err := e.newFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not call %s: %w", mb, err)
	}

	return &Invocation{
		engine: e,
		bind:   mb,
		target: target,
		frame:  frame,
		params: make([]uint64, 0, 8),
	}, nil
}

func (inv *Invocation) Frame() *Frame {
	return inv.frame
}

func (inv *Invocation) Push(wire uint64) {
	inv.params = append(inv.params, wire)
}

func (inv *Invocation) Invoke(ctx context.Context) ([]uint64, error) {
	inv.engine.stats.nativeCalls.Add(1)

	res, err := inv.target.Call(ctx, inv.params...)
	if err != nil {
		return nil, fmt.Errorf("could not call %s: %w", inv.bind, err)
	}

	return res, nil
}

// Result returns the single result of a call that returns a value.
func (inv *Invocation) Result(res []uint64) (uint64, error) {
	if len(res) != 1 {
		return 0, fmt.Errorf("%s returned %d values, expected 1", inv.bind, len(res))
	}
	return res[0], nil
}

func (inv *Invocation) End() {
	inv.frame.Release()
}
