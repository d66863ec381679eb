package objbind

import (
	"context"
	"fmt"

	internal "github.com/jerbob92/wazero-objbind/internal"
)

// Handler0 to Handler3 are signal callbacks. Connections are identified by
// the handler pointer: connecting the same *Handler twice makes two
// connections, and Disconnect removes one of them.
type Handler0 struct {
	Fn func(ctx context.Context) error
}

type Handler1[A1 any] struct {
	Fn func(ctx context.Context, a1 A1) error
}

type Handler2[A1, A2 any] struct {
	Fn func(ctx context.Context, a1 A1, a2 A2) error
}

type Handler3[A1, A2, A3 any] struct {
	Fn func(ctx context.Context, a1 A1, a2 A2, a3 A3) error
}

func NewHandler0(fn func(ctx context.Context) error) *Handler0 {
	return &Handler0{Fn: fn}
}

func NewHandler1[A1 any](fn func(ctx context.Context, a1 A1) error) *Handler1[A1] {
	return &Handler1[A1]{Fn: fn}
}

func NewHandler2[A1, A2 any](fn func(ctx context.Context, a1 A1, a2 A2) error) *Handler2[A1, A2] {
	return &Handler2[A1, A2]{Fn: fn}
}

func NewHandler3[A1, A2, A3 any](fn func(ctx context.Context, a1 A1, a2 A2, a3 A3) error) *Handler3[A1, A2, A3] {
	return &Handler3[A1, A2, A3]{Fn: fn}
}

func decodeArg[T any](c Codec[T], args []Variant, i int) (T, error) {
	v, err := c.FromVariant(args[i])
	if err != nil {
		var zero T
		return zero, fmt.Errorf("signal argument %d: %w", i, err)
	}
	return v, nil
}

func connect(ctx context.Context, obj *Object, signal StringName, trampoline internal.Trampoline) error {
	if obj == nil {
		return fmt.Errorf("could not connect to %s: %w", signal, ErrNullReceiver)
	}
	return obj.Engine().Connect(ctx, obj, signal, trampoline)
}

func Connect0(ctx context.Context, obj *Object, signal StringName, h *Handler0) error {
	return connect(ctx, obj, signal, internal.Trampoline{
		Delegate: h,
		Arity:    0,
		Invoke: func(ctx context.Context, args []Variant) error {
			return h.Fn(ctx)
		},
	})
}

func Connect1[A1 any](ctx context.Context, obj *Object, signal StringName, c1 Codec[A1], h *Handler1[A1]) error {
	return connect(ctx, obj, signal, internal.Trampoline{
		Delegate: h,
		Arity:    1,
		Invoke: func(ctx context.Context, args []Variant) error {
			a1, err := decodeArg(c1, args, 0)
			if err != nil {
				return err
			}
			return h.Fn(ctx, a1)
		},
	})
}

func Connect2[A1, A2 any](ctx context.Context, obj *Object, signal StringName, c1 Codec[A1], c2 Codec[A2], h *Handler2[A1, A2]) error {
	return connect(ctx, obj, signal, internal.Trampoline{
		Delegate: h,
		Arity:    2,
		Invoke: func(ctx context.Context, args []Variant) error {
			a1, err := decodeArg(c1, args, 0)
			if err != nil {
				return err
			}
			a2, err := decodeArg(c2, args, 1)
			if err != nil {
				return err
			}
			return h.Fn(ctx, a1, a2)
		},
	})
}

func Connect3[A1, A2, A3 any](ctx context.Context, obj *Object, signal StringName, c1 Codec[A1], c2 Codec[A2], c3 Codec[A3], h *Handler3[A1, A2, A3]) error {
	return connect(ctx, obj, signal, internal.Trampoline{
		Delegate: h,
		Arity:    3,
		Invoke: func(ctx context.Context, args []Variant) error {
			a1, err := decodeArg(c1, args, 0)
			if err != nil {
				return err
			}
			a2, err := decodeArg(c2, args, 1)
			if err != nil {
				return err
			}
			a3, err := decodeArg(c3, args, 2)
			if err != nil {
				return err
			}
			return h.Fn(ctx, a1, a2, a3)
		},
	})
}

// Disconnect removes the most recent connection of handler to the signal.
// It does nothing when the handler is not connected.
func Disconnect(ctx context.Context, obj *Object, signal StringName, handler any) error {
	if obj == nil {
		return nil
	}
	return obj.Engine().Disconnect(ctx, obj, signal, handler)
}
