package objbind

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parsing wasm signatures", func() {
	It("splits the result from the parameters", func() {
		params, results, err := parseWasmSignature("vij")
		Expect(err).To(BeNil())
		Expect(params).To(Equal([]api.ValueType{api.ValueTypeI32, api.ValueTypeI64}))
		Expect(results).To(BeEmpty())

		params, results, err = parseWasmSignature("dfj")
		Expect(err).To(BeNil())
		Expect(params).To(Equal([]api.ValueType{api.ValueTypeF32, api.ValueTypeI64}))
		Expect(results).To(Equal([]api.ValueType{api.ValueTypeF64}))
	})

	It("rejects unknown types", func() {
		_, _, err := parseWasmSignature("vx")
		Expect(err).To(HaveOccurred())
		_, _, err = parseWasmSignature("")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Host functions", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
	})

	call := func(fn api.GoModuleFunc, stack ...uint64) []uint64 {
		fn.Call(env.ctx, env.mod, stack)
		return stack
	}

	It("registers classes", func() {
		node, nodeLen := env.writeInput(0, []byte("Node"))
		node2D, node2DLen := env.writeInput(16, []byte("Node2D"))

		call(RegisterClass, node, nodeLen, 0, 0)
		call(RegisterClass, node2D, node2DLen, node, nodeLen)

		Expect(env.engine.classDB.IsParentClass(Intern("Node2D"), Intern("Node"))).To(BeTrue())
	})

	It("panics on invalid registrations", func() {
		node2D, node2DLen := env.writeInput(16, []byte("Node2D"))
		node, nodeLen := env.writeInput(0, []byte("Node"))

		Expect(func() {
			call(RegisterClass, node2D, node2DLen, node, nodeLen)
		}).To(PanicWith(MatchError(ContainSubstring("parent class Node is not registered"))))
	})

	It("registers methods from the function table", func() {
		env.registerClass("Node", "")
		target := &countingTarget{}

		var lookedUp []uint32
		env.engine.lookupFunction = func(mod api.Module, index uint32, params, results []api.ValueType) (CallTarget, error) {
			lookedUp = append(lookedUp, index)
			Expect(params).To(Equal([]api.ValueType{api.ValueTypeI64, api.ValueTypeI32}))
			Expect(results).To(BeEmpty())
			return target, nil
		}

		class, classLen := env.writeInput(0, []byte("Node"))
		name, nameLen := env.writeInput(16, []byte("set_index"))
		signature, _ := env.writeInput(32, []byte("vji\x00"))
		hash := Signature(false, VariantNil, VariantInt)

		call(RegisterMethod, class, classLen, name, nameLen, hash, api.EncodeU32(7), signature, api.EncodeU32(uint32(MethodFlagConst)))

		Expect(lookedUp).To(Equal([]uint32{7}))
		method, err := env.engine.classDB.Method(Intern("Node"), Intern("set_index"))
		Expect(err).To(BeNil())
		Expect(method.Hash).To(Equal(hash))
		Expect(method.Flags).To(Equal(MethodFlagConst))
		Expect(method.Target).To(BeIdenticalTo(target))
	})

	It("registers properties", func() {
		env.registerClass("Range", "")

		class, classLen := env.writeInput(0, []byte("Range"))
		name, nameLen := env.writeInput(16, []byte("page"))
		getter, getterLen := env.writeInput(32, []byte("get_page"))

		call(RegisterProperty, class, classLen, name, nameLen, getter, getterLen, 0, 0)

		property, err := env.engine.classDB.Property(Intern("Range"), Intern("page"))
		Expect(err).To(BeNil())
		Expect(property.IsReadOnly()).To(BeTrue())
	})

	It("registers signals with their argument types", func() {
		env.registerClass("Range", "")

		class, classLen := env.writeInput(0, []byte("Range"))
		name, nameLen := env.writeInput(16, []byte("value_changed"))
		argTypes, _ := env.writeInput(32, []byte{byte(VariantFloat), 0, 0, 0})

		call(RegisterSignal, class, classLen, name, nameLen, api.EncodeU32(1), argTypes)

		signal, err := env.engine.classDB.Signal(Intern("Range"), Intern("value_changed"))
		Expect(err).To(BeNil())
		Expect(signal.Args).To(Equal([]VariantType{VariantFloat}))
	})

	It("emits signals to connected trampolines", func() {
		env.registerClass("Range", "")
		Expect(env.engine.classDB.RegisterSignal(NativeSignal{
			Class: Intern("Range"),
			Name:  Intern("value_changed"),
			Args:  []VariantType{VariantFloat},
		})).To(Succeed())
		obj := env.engine.Wrap(5, Intern("Range"))

		var received []Variant
		delegate := &testDelegate{}
		Expect(env.engine.Connect(env.ctx, obj, Intern("value_changed"), Trampoline{
			Delegate: delegate,
			Arity:    1,
			Invoke: func(ctx context.Context, args []Variant) error {
				received = args
				return nil
			},
		})).To(Succeed())

		name, nameLen := env.writeInput(0, []byte("value_changed"))
		args := uint32(inputBase + 64)
		Expect(env.engine.WriteVariant(env.ctx, env.mod.Memory(), args, Variant{Type: VariantFloat, Value: 0.25})).To(Succeed())

		call(EmitSignal, 5, name, nameLen, api.EncodeU32(1), api.EncodeU32(args))

		Expect(received).To(Equal([]Variant{{Type: VariantFloat, Value: 0.25}}))
	})

	It("does not decode emissions nobody listens to", func() {
		name, nameLen := env.writeInput(0, []byte("value_changed"))

		// The argument pointer is out of bounds, so decoding would panic.
		call(EmitSignal, 5, name, nameLen, api.EncodeU32(1), api.EncodeU32(0xfffffff0))
	})

	It("dispatches virtual calls and writes the result", func() {
		env.registerClass("Node", "")
		class := NewManagedClass("Player", "Node", nil)
		Expect(class.Override(VirtualMethod{
			Name:   Intern("_get_label"),
			Args:   []VariantType{VariantInt},
			Return: VariantString,
			Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
				Expect(self.Handle()).To(BeEquivalentTo(9))
				return Variant{Type: VariantString, Value: "label"}, nil
			},
		})).To(Succeed())
		class.Finalize()
		_, err := env.engine.Bind(9, class)
		Expect(err).To(BeNil())

		name, nameLen := env.writeInput(0, []byte("_get_label"))
		args := uint32(inputBase + 64)
		ret := uint32(inputBase + 128)
		Expect(env.engine.WriteVariant(env.ctx, env.mod.Memory(), args, Variant{Type: VariantInt, Value: int64(3)})).To(Succeed())

		stack := call(CallVirtual, 9, name, nameLen, api.EncodeU32(1), api.EncodeU32(args), api.EncodeU32(ret))
		Expect(api.DecodeI32(stack[0])).To(Equal(int32(1)))

		result, err := env.engine.ReadVariant(env.mod.Memory(), ret)
		Expect(err).To(BeNil())
		Expect(result).To(Equal(Variant{Type: VariantString, Value: "label"}))
	})

	It("tells native code to run its own implementation", func() {
		env.engine.Wrap(9, Intern("Node"))
		name, nameLen := env.writeInput(0, []byte("_ready"))

		stack := call(CallVirtual, 9, name, nameLen, 0, 0, 0)
		Expect(api.DecodeI32(stack[0])).To(BeZero())
		Expect(env.engine.Stats().VirtualDecodes).To(BeZero())
	})

	It("invalidates freed objects", func() {
		obj := env.engine.Wrap(9, Intern("Node"))
		call(ObjectFreed, 9)
		Expect(obj.IsValid()).To(BeFalse())
	})

	It("refuses to serve a second module", func() {
		other := newTestEnv()
		Expect(env.engine.SetModule(env.ctx, other.mod)).To(MatchError(ContainSubstring("another wazero api.Module")))
	})
})
