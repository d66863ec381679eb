package objbind

import (
	"context"
	"errors"
	"fmt"

	"github.com/jerbob92/wazero-objbind/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Managed classes", func() {
	noop := func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
		return NilVariant(), nil
	}

	It("inherits the native class of its parent", func() {
		base := NewManagedClass("Character", "CharacterBody2D", nil)
		player := NewManagedClass("Player", "Ignored", base)
		Expect(player.Native()).To(Equal(Intern("CharacterBody2D")))
		Expect(player.Parent()).To(BeIdenticalTo(base))
	})

	It("validates overrides", func() {
		class := NewManagedClass("Player", "Node", nil)
		Expect(class.Override(VirtualMethod{Name: Intern("_ready")})).To(MatchError(ContainSubstring("no implementation")))
		Expect(class.Override(VirtualMethod{Name: Intern("_ready"), Fn: noop, Args: []VariantType{VariantType(50)}})).ToNot(Succeed())

		Expect(class.Override(VirtualMethod{Name: Intern("_ready"), Fn: noop})).To(Succeed())
		Expect(class.Override(VirtualMethod{Name: Intern("_ready"), Fn: noop})).To(MatchError(ContainSubstring("already overridden")))

		class.Finalize()
		Expect(class.IsFinalized()).To(BeTrue())
		Expect(class.Override(VirtualMethod{Name: Intern("_process"), Fn: noop})).To(MatchError(ContainSubstring("finalized")))
	})
})

var _ = Describe("Virtual dispatch", func() {
	var env *testEnv
	var calls []string

	process := func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
		calls = append(calls, fmt.Sprintf("_process(%v)", args[0].Value))
		return NilVariant(), nil
	}

	BeforeEach(func() {
		env = newTestEnv()
		calls = nil
		env.registerClass("Node", "")
		env.registerClass("Node2D", "Node")
	})

	bind := func(handle types.Handle, class *ManagedClass) *Object {
		obj, err := env.engine.Bind(handle, class)
		Expect(err).To(BeNil())
		return obj
	}

	It("falls back to native code without decoding when nothing is overridden", func() {
		class := NewManagedClass("Player", "Node2D", nil)
		class.Finalize()
		bind(1, class)

		decoded := false
		_, _, handled, err := env.engine.dispatchVirtual(env.ctx, 1, Intern("_process"), 1, func() ([]Variant, error) {
			decoded = true
			return nil, nil
		})
		Expect(err).To(BeNil())
		Expect(handled).To(BeFalse())
		Expect(decoded).To(BeFalse())
		Expect(env.engine.Stats().VirtualDecodes).To(BeZero())
		Expect(env.engine.Stats().VirtualDispatches).To(Equal(uint64(1)))
	})

	It("falls back for objects without managed class", func() {
		env.engine.Wrap(2, Intern("Node2D"))

		_, handled, err := env.engine.CallVirtual(env.ctx, 2, Intern("_process"), []Variant{{Type: VariantFloat, Value: 0.5}})
		Expect(err).To(BeNil())
		Expect(handled).To(BeFalse())
	})

	It("dispatches to the override", func() {
		class := NewManagedClass("Player", "Node2D", nil)
		Expect(class.Override(VirtualMethod{Name: Intern("_process"), Args: []VariantType{VariantFloat}, Fn: process})).To(Succeed())
		class.Finalize()
		bind(1, class)

		_, handled, err := env.engine.CallVirtual(env.ctx, 1, Intern("_process"), []Variant{{Type: VariantFloat, Value: 0.5}})
		Expect(err).To(BeNil())
		Expect(handled).To(BeTrue())
		Expect(calls).To(Equal([]string{"_process(0.5)"}))
		Expect(env.engine.Stats().VirtualDecodes).To(Equal(uint64(1)))
	})

	It("dispatches to overrides of parent classes", func() {
		base := NewManagedClass("Character", "Node2D", nil)
		Expect(base.Override(VirtualMethod{Name: Intern("_process"), Args: []VariantType{VariantFloat}, Fn: process})).To(Succeed())
		base.Finalize()

		player := NewManagedClass("Player", "", base)
		player.Finalize()
		bind(1, player)

		Expect(env.engine.HasOverride(player, Intern("_process"))).To(BeTrue())
		Expect(env.engine.HasOverride(player, Intern("_ready"))).To(BeFalse())

		_, handled, err := env.engine.CallVirtual(env.ctx, 1, Intern("_process"), []Variant{{Type: VariantFloat, Value: 1.0}})
		Expect(err).To(BeNil())
		Expect(handled).To(BeTrue())
		Expect(calls).To(HaveLen(1))
	})

	It("reports an arity mismatch without calling the override", func() {
		class := NewManagedClass("Player", "Node2D", nil)
		Expect(class.Override(VirtualMethod{Name: Intern("_process"), Args: []VariantType{VariantFloat}, Fn: process})).To(Succeed())
		class.Finalize()
		bind(1, class)

		_, handled, err := env.engine.CallVirtual(env.ctx, 1, Intern("_process"), nil)
		Expect(handled).To(BeTrue())
		Expect(errors.Is(err, &ArgumentArityMismatch{})).To(BeTrue())
		Expect(calls).To(BeEmpty())
		Expect(env.engine.Stats().VirtualDecodes).To(BeZero())
	})

	It("checks argument and return types", func() {
		class := NewManagedClass("Player", "Node2D", nil)
		Expect(class.Override(VirtualMethod{Name: Intern("_process"), Args: []VariantType{VariantFloat}, Fn: process})).To(Succeed())
		Expect(class.Override(VirtualMethod{
			Name:   Intern("_get_name"),
			Return: VariantString,
			Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
				return Variant{Type: VariantInt, Value: int64(1)}, nil
			},
		})).To(Succeed())
		class.Finalize()
		bind(1, class)

		_, _, err := env.engine.CallVirtual(env.ctx, 1, Intern("_process"), []Variant{{Type: VariantString, Value: "x"}})
		Expect(err).To(MatchError(ContainSubstring("got String, expected float")))

		_, _, err = env.engine.CallVirtual(env.ctx, 1, Intern("_get_name"), nil)
		Expect(err).To(MatchError(ContainSubstring("return value")))
	})

	It("accepts a null object for object arguments", func() {
		var received *Object
		class := NewManagedClass("Player", "Node2D", nil)
		Expect(class.Override(VirtualMethod{
			Name: Intern("_enter"),
			Args: []VariantType{VariantObject},
			Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
				received, _ = args[0].Value.(*Object)
				return NilVariant(), nil
			},
		})).To(Succeed())
		class.Finalize()
		bind(1, class)

		_, handled, err := env.engine.CallVirtual(env.ctx, 1, Intern("_enter"), []Variant{NilVariant()})
		Expect(err).To(BeNil())
		Expect(handled).To(BeTrue())
		Expect(received).To(BeNil())
	})

	It("memoizes lookups only once the class chain is finalized", func() {
		base := NewManagedClass("Character", "Node2D", nil)
		player := NewManagedClass("Player", "", base)
		player.Finalize()

		Expect(env.engine.HasOverride(player, Intern("_process"))).To(BeFalse())
		Expect(env.engine.HasOverride(player, Intern("_process"))).To(BeFalse())
		Expect(player.overrides.walks.Load()).To(Equal(uint64(2)))

		// The open parent may still gain the override.
		Expect(base.Override(VirtualMethod{Name: Intern("_process"), Args: []VariantType{VariantFloat}, Fn: process})).To(Succeed())
		base.Finalize()

		Expect(env.engine.HasOverride(player, Intern("_process"))).To(BeTrue())
		Expect(env.engine.HasOverride(player, Intern("_process"))).To(BeTrue())
		Expect(player.overrides.walks.Load()).To(Equal(uint64(3)))
	})

	It("memoizes negative answers of finalized classes", func() {
		class := NewManagedClass("Player", "Node2D", nil)
		class.Finalize()

		for i := 0; i < 3; i++ {
			Expect(env.engine.HasOverride(class, Intern("_input"))).To(BeFalse())
		}
		Expect(class.overrides.walks.Load()).To(Equal(uint64(1)))
	})

	It("propagates errors of the override", func() {
		class := NewManagedClass("Player", "Node2D", nil)
		Expect(class.Override(VirtualMethod{
			Name: Intern("_ready"),
			Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
				return NilVariant(), errors.New("boom")
			},
		})).To(Succeed())
		class.Finalize()
		bind(1, class)

		_, handled, err := env.engine.CallVirtual(env.ctx, 1, Intern("_ready"), nil)
		Expect(handled).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})
})
