package objbind

import (
	"context"

	internal "github.com/jerbob92/wazero-objbind/internal"

	"github.com/tetratelabs/wazero/api"
)

func push[T any](inv *internal.Invocation, c Codec[T], v T) error {
	wire, err := c.Encode(inv.Frame(), v)
	if err != nil {
		return err
	}
	inv.Push(wire)
	return nil
}

func finish[R any](ctx context.Context, inv *internal.Invocation, ret Codec[R]) (R, error) {
	var zero R

	if slot, ok := ret.(slotCodec); ok {
		retPtr, err := inv.Frame().Alloc(slot.SlotSize(), 8)
		if err != nil {
			return zero, err
		}
		inv.Push(api.EncodeU32(retPtr))

		if _, err := inv.Invoke(ctx); err != nil {
			return zero, err
		}

		return ret.Decode(ctx, inv.Frame(), api.EncodeU32(retPtr))
	}

	res, err := inv.Invoke(ctx)
	if err != nil {
		return zero, err
	}

	wire, err := inv.Result(res)
	if err != nil {
		return zero, err
	}

	return ret.Decode(ctx, inv.Frame(), wire)
}

func finishVoid(ctx context.Context, inv *internal.Invocation) error {
	_, err := inv.Invoke(ctx)
	return err
}

// Call0 calls an instance method and decodes its result with ret. Call1 to
// Call5 take arguments, each with its codec.
func Call0[R any](ctx context.Context, mb *MethodBind, obj *Object, ret Codec[R]) (R, error) {
	var zero R

	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	return finish(ctx, inv, ret)
}

func Call1[R, A1 any](ctx context.Context, mb *MethodBind, obj *Object, ret Codec[R], c1 Codec[A1], a1 A1) (R, error) {
	var zero R

	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func Call2[R, A1, A2 any](ctx context.Context, mb *MethodBind, obj *Object, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2) (R, error) {
	var zero R

	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func Call3[R, A1, A2, A3 any](ctx context.Context, mb *MethodBind, obj *Object, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3) (R, error) {
	var zero R

	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}
	if err := push(inv, c3, a3); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func Call4[R, A1, A2, A3, A4 any](ctx context.Context, mb *MethodBind, obj *Object, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4) (R, error) {
	var zero R

	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}
	if err := push(inv, c3, a3); err != nil {
		return zero, err
	}
	if err := push(inv, c4, a4); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func Call5[R, A1, A2, A3, A4, A5 any](ctx context.Context, mb *MethodBind, obj *Object, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4, c5 Codec[A5], a5 A5) (R, error) {
	var zero R

	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}
	if err := push(inv, c3, a3); err != nil {
		return zero, err
	}
	if err := push(inv, c4, a4); err != nil {
		return zero, err
	}
	if err := push(inv, c5, a5); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

// CallVoid0 calls an instance method without result.
func CallVoid0(ctx context.Context, mb *MethodBind, obj *Object) error {
	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return err
	}
	defer inv.End()

	return finishVoid(ctx, inv)
}

func CallVoid1[A1 any](ctx context.Context, mb *MethodBind, obj *Object, c1 Codec[A1], a1 A1) error {
	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallVoid2[A1, A2 any](ctx context.Context, mb *MethodBind, obj *Object, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2) error {
	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallVoid3[A1, A2, A3 any](ctx context.Context, mb *MethodBind, obj *Object, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3) error {
	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}
	if err := push(inv, c3, a3); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallVoid4[A1, A2, A3, A4 any](ctx context.Context, mb *MethodBind, obj *Object, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4) error {
	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}
	if err := push(inv, c3, a3); err != nil {
		return err
	}
	if err := push(inv, c4, a4); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallVoid5[A1, A2, A3, A4, A5 any](ctx context.Context, mb *MethodBind, obj *Object, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4, c5 Codec[A5], a5 A5) error {
	inv, err := internal.BeginCall(ctx, mb, obj)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}
	if err := push(inv, c3, a3); err != nil {
		return err
	}
	if err := push(inv, c4, a4); err != nil {
		return err
	}
	if err := push(inv, c5, a5); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

// CallStatic0 calls a static method on the engine attached to the context.
func CallStatic0[R any](ctx context.Context, mb *MethodBind, ret Codec[R]) (R, error) {
	var zero R

	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	return finish(ctx, inv, ret)
}

func CallStatic1[R, A1 any](ctx context.Context, mb *MethodBind, ret Codec[R], c1 Codec[A1], a1 A1) (R, error) {
	var zero R

	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func CallStatic2[R, A1, A2 any](ctx context.Context, mb *MethodBind, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2) (R, error) {
	var zero R

	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func CallStatic3[R, A1, A2, A3 any](ctx context.Context, mb *MethodBind, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3) (R, error) {
	var zero R

	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}
	if err := push(inv, c3, a3); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func CallStatic4[R, A1, A2, A3, A4 any](ctx context.Context, mb *MethodBind, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4) (R, error) {
	var zero R

	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}
	if err := push(inv, c3, a3); err != nil {
		return zero, err
	}
	if err := push(inv, c4, a4); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func CallStatic5[R, A1, A2, A3, A4, A5 any](ctx context.Context, mb *MethodBind, ret Codec[R], c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4, c5 Codec[A5], a5 A5) (R, error) {
	var zero R

	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return zero, err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return zero, err
	}
	if err := push(inv, c2, a2); err != nil {
		return zero, err
	}
	if err := push(inv, c3, a3); err != nil {
		return zero, err
	}
	if err := push(inv, c4, a4); err != nil {
		return zero, err
	}
	if err := push(inv, c5, a5); err != nil {
		return zero, err
	}

	return finish(ctx, inv, ret)
}

func CallStaticVoid0(ctx context.Context, mb *MethodBind) error {
	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return err
	}
	defer inv.End()

	return finishVoid(ctx, inv)
}

func CallStaticVoid1[A1 any](ctx context.Context, mb *MethodBind, c1 Codec[A1], a1 A1) error {
	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallStaticVoid2[A1, A2 any](ctx context.Context, mb *MethodBind, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2) error {
	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallStaticVoid3[A1, A2, A3 any](ctx context.Context, mb *MethodBind, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3) error {
	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}
	if err := push(inv, c3, a3); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallStaticVoid4[A1, A2, A3, A4 any](ctx context.Context, mb *MethodBind, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4) error {
	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}
	if err := push(inv, c3, a3); err != nil {
		return err
	}
	if err := push(inv, c4, a4); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}

func CallStaticVoid5[A1, A2, A3, A4, A5 any](ctx context.Context, mb *MethodBind, c1 Codec[A1], a1 A1, c2 Codec[A2], a2 A2, c3 Codec[A3], a3 A3, c4 Codec[A4], a4 A4, c5 Codec[A5], a5 A5) error {
	inv, err := internal.BeginStaticCall(ctx, mb)
	if err != nil {
		return err
	}
	defer inv.End()

	if err := push(inv, c1, a1); err != nil {
		return err
	}
	if err := push(inv, c2, a2); err != nil {
		return err
	}
	if err := push(inv, c3, a3); err != nil {
		return err
	}
	if err := push(inv, c4, a4); err != nil {
		return err
	}
	if err := push(inv, c5, a5); err != nil {
		return err
	}

	return finishVoid(ctx, inv)
}
