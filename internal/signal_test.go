package objbind

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testDelegate struct {
	name string
}

var _ = Describe("Signal trampolines", func() {
	var env *testEnv
	var obj *Object
	var received []string
	valueChanged := Intern("value_changed")

	trampoline := func(d *testDelegate) Trampoline {
		return Trampoline{
			Delegate: d,
			Arity:    1,
			Invoke: func(ctx context.Context, args []Variant) error {
				received = append(received, fmt.Sprintf("%s:%v", d.name, args[0].Value))
				return nil
			},
		}
	}

	BeforeEach(func() {
		env = newTestEnv()
		received = nil
		env.registerClass("Range", "")
		Expect(env.engine.classDB.RegisterSignal(NativeSignal{
			Class: Intern("Range"),
			Name:  valueChanged,
			Args:  []VariantType{VariantInt},
		})).To(Succeed())
		obj = env.engine.Wrap(5, Intern("Range"))
	})

	emit := func(value int64) error {
		return env.engine.EmitSignal(env.ctx, 5, valueChanged, []Variant{{Type: VariantInt, Value: value}})
	}

	It("delivers to every trampoline in connection order", func() {
		a, b := &testDelegate{name: "a"}, &testDelegate{name: "b"}
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(a))).To(Succeed())
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(b))).To(Succeed())

		Expect(emit(42)).To(Succeed())
		Expect(received).To(Equal([]string{"a:42", "b:42"}))
		Expect(env.engine.Stats().SignalDeliveries).To(Equal(uint64(2)))
	})

	It("subscribes on the first connection and unsubscribes on the last", func() {
		a, b := &testDelegate{name: "a"}, &testDelegate{name: "b"}
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(a))).To(Succeed())
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(b))).To(Succeed())
		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, a)).To(Succeed())
		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, b)).To(Succeed())

		Expect(env.subscriber.Events()).To(Equal([]string{
			"subscribe 5 value_changed",
			"unsubscribe 5 value_changed",
		}))
	})

	It("disconnects idempotently", func() {
		a := &testDelegate{name: "a"}
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(a))).To(Succeed())

		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, a)).To(Succeed())
		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, a)).To(Succeed())
		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, &testDelegate{name: "unknown"})).To(Succeed())

		Expect(env.engine.ConnectionCount(obj, valueChanged)).To(BeZero())
		Expect(emit(1)).To(Succeed())
		Expect(received).To(BeEmpty())
	})

	It("removes one connection per disconnect", func() {
		a := &testDelegate{name: "a"}
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(a))).To(Succeed())
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(a))).To(Succeed())
		Expect(env.engine.ConnectionCount(obj, valueChanged)).To(Equal(2))

		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, a)).To(Succeed())
		Expect(env.engine.ConnectionCount(obj, valueChanged)).To(Equal(1))
	})

	It("delivers to the trampolines connected when the emission started", func() {
		a, b := &testDelegate{name: "a"}, &testDelegate{name: "b"}
		first := trampoline(a)
		first.Invoke = func(ctx context.Context, args []Variant) error {
			received = append(received, "a")
			return env.engine.Disconnect(ctx, obj, valueChanged, b)
		}
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, first)).To(Succeed())
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(b))).To(Succeed())

		Expect(emit(3)).To(Succeed())
		Expect(received).To(Equal([]string{"a", "b:3"}))

		received = nil
		Expect(emit(4)).To(Succeed())
		Expect(received).To(Equal([]string{"a"}))
	})

	It("checks the arity against the declaration", func() {
		t := trampoline(&testDelegate{name: "a"})
		t.Arity = 2
		err := env.engine.Connect(env.ctx, obj, valueChanged, t)
		Expect(errors.Is(err, &ArgumentArityMismatch{})).To(BeTrue())
		Expect(env.engine.ConnectionCount(obj, valueChanged)).To(BeZero())
	})

	It("reports emissions with the wrong number of arguments", func() {
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(&testDelegate{name: "a"}))).To(Succeed())

		err := env.engine.EmitSignal(env.ctx, 5, valueChanged, nil)
		Expect(errors.Is(err, &ArgumentArityMismatch{})).To(BeTrue())
		Expect(received).To(BeEmpty())
	})

	It("requires comparable delegates", func() {
		t := trampoline(&testDelegate{name: "a"})
		t.Delegate = func() {}
		err := env.engine.Connect(env.ctx, obj, valueChanged, t)
		Expect(errors.Is(err, ErrDelegateNotComparable)).To(BeTrue())
	})

	It("rejects undeclared signals", func() {
		err := env.engine.Connect(env.ctx, obj, Intern("pressed"), trampoline(&testDelegate{name: "a"}))
		Expect(err).To(BeAssignableToTypeOf(&BindResolutionError{}))
	})

	It("rolls back when the subscription fails", func() {
		env.subscriber.err = errors.New("no such object")
		err := env.engine.Connect(env.ctx, obj, valueChanged, trampoline(&testDelegate{name: "a"}))
		Expect(err).To(MatchError(ContainSubstring("no such object")))
		Expect(env.engine.ConnectionCount(obj, valueChanged)).To(BeZero())
	})

	It("drops the connections of freed objects", func() {
		Expect(env.engine.Connect(env.ctx, obj, valueChanged, trampoline(&testDelegate{name: "a"}))).To(Succeed())
		env.engine.ObjectFreed(5)

		Expect(emit(1)).To(Succeed())
		Expect(received).To(BeEmpty())
		Expect(env.engine.Disconnect(env.ctx, obj, valueChanged, &testDelegate{})).To(Succeed())
	})
})
