package objbind

import (
	"errors"

	"github.com/jerbob92/wazero-objbind/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Object wrappers", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
		env.registerClass("Node", "")
	})

	It("wraps a handle once", func() {
		a := env.engine.Wrap(7, Intern("Node"))
		b := env.engine.Wrap(7, Intern("Node"))
		Expect(a).To(BeIdenticalTo(b))
		Expect(a.IsValid()).To(BeTrue())
		Expect(env.engine.Stats().Objects).To(Equal(1))
	})

	It("does not wrap the null handle", func() {
		Expect(env.engine.Wrap(0, Intern("Node"))).To(BeNil())
	})

	It("binds managed classes to registered native classes only", func() {
		_, err := env.engine.Bind(9, NewManagedClass("Player", "Sprite2D", nil))
		Expect(err).To(BeAssignableToTypeOf(&BindResolutionError{}))

		obj, err := env.engine.Bind(9, NewManagedClass("Player", "Node", nil))
		Expect(err).To(BeNil())
		Expect(obj.Class()).To(Equal(Intern("Node")))
		Expect(obj.Managed().Name()).To(Equal(Intern("Player")))

		_, err = env.engine.Bind(9, NewManagedClass("Enemy", "Node", nil))
		Expect(err).To(MatchError(ContainSubstring("already bound")))
	})

	It("invalidates the wrapper when the native object is freed", func() {
		obj := env.engine.Wrap(7, Intern("Node"))
		env.engine.ObjectFreed(7)

		Expect(obj.IsValid()).To(BeFalse())
		Expect(obj.Handle()).To(Equal(types.Handle(0)))
		Expect(obj.String()).To(Equal("Node(freed)"))

		_, ok := env.engine.LookupObject(7)
		Expect(ok).To(BeFalse())

		_, err := obj.receiver()
		Expect(errors.Is(err, ErrHandleInvalidated)).To(BeTrue())
	})

	It("treats a nil wrapper as a null receiver", func() {
		var obj *Object
		_, err := obj.receiver()
		Expect(err).To(MatchError(ErrNullReceiver))
		Expect(obj.Handle()).To(Equal(types.Handle(0)))
	})
})

var _ = Describe("Native invocations", func() {
	var env *testEnv
	var target *countingTarget
	hash := Signature(false, VariantInt, VariantInt)
	staticHash := Signature(true, VariantInt)

	BeforeEach(func() {
		env = newTestEnv()
		target = &countingTarget{result: []uint64{5}}
		env.registerClass("Node", "")
		env.registerMethod("Node", "add", hash, 0, target)
		env.registerMethod("Node", "count", staticHash, MethodFlagStatic, target)
	})

	It("passes the receiver first", func() {
		obj := env.engine.Wrap(3, Intern("Node"))

		inv, err := BeginCall(env.ctx, NewMethodBind("Node", "add", hash), obj)
		Expect(err).To(BeNil())
		defer inv.End()

		inv.Push(11)
		res, err := inv.Invoke(env.ctx)
		Expect(err).To(BeNil())

		result, err := inv.Result(res)
		Expect(err).To(BeNil())
		Expect(result).To(Equal(uint64(5)))
		Expect(target.Calls()).To(Equal([][]uint64{{3, 11}}))
		Expect(env.engine.Stats().NativeCalls).To(Equal(uint64(1)))
	})

	It("calls static methods without receiver", func() {
		inv, err := BeginStaticCall(env.ctx, NewStaticMethodBind("Node", "count", staticHash))
		Expect(err).To(BeNil())
		defer inv.End()

		_, err = inv.Invoke(env.ctx)
		Expect(err).To(BeNil())
		Expect(target.Calls()).To(HaveLen(1))
		Expect(target.Calls()[0]).To(BeEmpty())
	})

	It("keeps instance and static calls apart", func() {
		obj := env.engine.Wrap(3, Intern("Node"))

		_, err := BeginCall(env.ctx, NewStaticMethodBind("Node", "count", staticHash), obj)
		Expect(err).To(MatchError(ContainSubstring("method is static")))

		_, err = BeginStaticCall(env.ctx, NewMethodBind("Node", "add", hash))
		Expect(err).To(MatchError(ContainSubstring("needs a receiver")))
	})

	It("refuses null and freed receivers", func() {
		_, err := BeginCall(env.ctx, NewMethodBind("Node", "add", hash), nil)
		Expect(errors.Is(err, ErrNullReceiver)).To(BeTrue())

		obj := env.engine.Wrap(3, Intern("Node"))
		env.engine.ObjectFreed(3)
		_, err = BeginCall(env.ctx, NewMethodBind("Node", "add", hash), obj)
		Expect(errors.Is(err, ErrHandleInvalidated)).To(BeTrue())

		Expect(target.Calls()).To(BeEmpty())
	})

	It("checks the number of results", func() {
		target.result = nil
		obj := env.engine.Wrap(3, Intern("Node"))

		inv, err := BeginCall(env.ctx, NewMethodBind("Node", "add", hash), obj)
		Expect(err).To(BeNil())
		defer inv.End()

		res, err := inv.Invoke(env.ctx)
		Expect(err).To(BeNil())
		_, err = inv.Result(res)
		Expect(err).To(MatchError(ContainSubstring("returned 0 values")))
	})

	It("releases the frame when the call ends", func() {
		obj := env.engine.Wrap(3, Intern("Node"))

		inv, err := BeginCall(env.ctx, NewMethodBind("Node", "add", hash), obj)
		Expect(err).To(BeNil())
		_, err = inv.Frame().WriteString("scratch")
		Expect(err).To(BeNil())
		Expect(env.engine.stack.top).To(BeNumerically(">", scratchBase))

		inv.End()
		Expect(env.engine.stack.top).To(Equal(uint32(scratchBase)))
	})
})

var _ = Describe("Property binds", func() {
	var env *testEnv
	getterHash := Signature(false, VariantFloat)
	setterHash := Signature(false, VariantNil, VariantFloat)

	BeforeEach(func() {
		env = newTestEnv()
		env.registerClass("Range", "")
		env.registerClass("ProgressBar", "Range")
		Expect(env.engine.classDB.RegisterProperty(NativeProperty{
			Class:  Intern("Range"),
			Name:   Intern("value"),
			Getter: Intern("get_value"),
			Setter: Intern("set_value"),
		})).To(Succeed())
		Expect(env.engine.classDB.RegisterProperty(NativeProperty{
			Class:  Intern("Range"),
			Name:   Intern("page"),
			Getter: Intern("get_page"),
		})).To(Succeed())
	})

	It("resolves the accessors through the property table", func() {
		pb := NewPropertyBind("ProgressBar", "value", getterHash, setterHash)
		obj := env.engine.Wrap(1, Intern("ProgressBar"))

		getter, err := pb.Getter(obj)
		Expect(err).To(BeNil())
		Expect(getter.Method()).To(Equal(Intern("get_value")))
		Expect(getter.Hash()).To(Equal(getterHash))

		setter, err := pb.Setter(obj)
		Expect(err).To(BeNil())
		Expect(setter.Method()).To(Equal(Intern("set_value")))
	})

	It("has no setter for read-only properties", func() {
		pb := NewPropertyBind("Range", "page", getterHash, setterHash)
		obj := env.engine.Wrap(1, Intern("Range"))

		_, err := pb.Setter(obj)
		Expect(errors.Is(err, ErrReadOnlyProperty)).To(BeTrue())
	})

	It("reports unknown properties", func() {
		pb := NewPropertyBind("Range", "missing", getterHash, setterHash)
		_, err := pb.Getter(env.engine.Wrap(1, Intern("Range")))
		Expect(err).To(BeAssignableToTypeOf(&BindResolutionError{}))
	})
})
