package objbind

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("The class registry", func() {
	var db *ClassDB
	target := CallTargetFunc(func(ctx context.Context, params ...uint64) ([]uint64, error) {
		return nil, nil
	})

	BeforeEach(func() {
		db = NewClassDB()
		Expect(db.RegisterClass(Intern("Node"), StringName{})).To(Succeed())
		Expect(db.RegisterClass(Intern("Node2D"), Intern("Node"))).To(Succeed())
	})

	It("requires the parent to be registered first", func() {
		err := db.RegisterClass(Intern("Sprite2D"), Intern("CanvasItem"))
		Expect(err).To(MatchError(ContainSubstring("parent class CanvasItem is not registered")))
	})

	It("refuses to register a class twice", func() {
		Expect(db.RegisterClass(Intern("Node"), StringName{})).ToNot(Succeed())
	})

	It("knows the inheritance chain", func() {
		Expect(db.IsParentClass(Intern("Node2D"), Intern("Node"))).To(BeTrue())
		Expect(db.IsParentClass(Intern("Node"), Intern("Node2D"))).To(BeFalse())

		parent, ok := db.Parent(Intern("Node2D"))
		Expect(ok).To(BeTrue())
		Expect(parent).To(Equal(Intern("Node")))
	})

	It("finds inherited methods", func() {
		hash := Signature(false, VariantString)
		Expect(db.RegisterMethod(NativeMethod{Class: Intern("Node"), Name: Intern("get_name"), Hash: hash, Target: target})).To(Succeed())

		found, err := db.LookupMethod(Intern("Node2D"), Intern("get_name"), hash)
		Expect(err).To(BeNil())
		Expect(found).ToNot(BeNil())
	})

	It("reports missing methods with the expected signature", func() {
		_, err := db.LookupMethod(Intern("Node2D"), Intern("missing"), 42)

		var bindErr *BindResolutionError
		Expect(errors.As(err, &bindErr)).To(BeTrue())
		Expect(bindErr.Kind).To(Equal(MemberMethod))
		Expect(bindErr.Expected).To(Equal(uint64(42)))
		Expect(bindErr.Reason).To(Equal("not found"))
	})

	It("reports signature mismatches", func() {
		Expect(db.RegisterMethod(NativeMethod{Class: Intern("Node"), Name: Intern("get_name"), Hash: 1, Target: target})).To(Succeed())

		_, err := db.LookupMethod(Intern("Node"), Intern("get_name"), 2)

		var bindErr *BindResolutionError
		Expect(errors.As(err, &bindErr)).To(BeTrue())
		Expect(bindErr.Reason).To(Equal("signature mismatch"))
		Expect(bindErr.Expected).To(Equal(uint64(2)))
		Expect(bindErr.Actual).To(Equal(uint64(1)))
	})

	It("reports unknown classes", func() {
		_, err := db.Method(Intern("Unknown"), Intern("get_name"))

		var bindErr *BindResolutionError
		Expect(errors.As(err, &bindErr)).To(BeTrue())
		Expect(bindErr.Kind).To(Equal(MemberClass))
	})

	It("requires a getter for properties", func() {
		err := db.RegisterProperty(NativeProperty{Class: Intern("Node"), Name: Intern("name")})
		Expect(err).To(MatchError(ContainSubstring("no getter")))
	})

	It("rejects signals with invalid argument types", func() {
		err := db.RegisterSignal(NativeSignal{Class: Intern("Node"), Name: Intern("ready"), Args: []VariantType{VariantType(99)}})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Resolving method binds", func() {
	var env *testEnv
	var target *countingTarget
	hash := Signature(false, VariantNil, VariantVector2)

	BeforeEach(func() {
		env = newTestEnv()
		target = &countingTarget{}
		env.registerClass("Node", "")
		env.registerClass("Node2D", "Node")
		env.registerMethod("Node2D", "set_position", hash, 0, target)
	})

	It("looks up the native method exactly once across goroutines", func() {
		mb := NewMethodBind("Node2D", "set_position", hash)

		const goroutines = 64
		targets := make([]CallTarget, goroutines)
		start := make(chan struct{})

		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				<-start
				resolved, err := mb.Resolve(env.engine)
				Expect(err).To(BeNil())
				targets[i] = resolved
			}(i)
		}
		close(start)
		wg.Wait()

		Expect(env.engine.Stats().NativeLookups).To(Equal(uint64(1)))
		for i := range targets {
			Expect(targets[i]).To(BeIdenticalTo(target))
		}
	})

	It("shares the resolution between binds of the same method", func() {
		_, err := NewMethodBind("Node2D", "set_position", hash).Resolve(env.engine)
		Expect(err).To(BeNil())
		_, err = NewMethodBind("Node2D", "set_position", hash).Resolve(env.engine)
		Expect(err).To(BeNil())

		Expect(env.engine.Stats().NativeLookups).To(Equal(uint64(1)))
	})

	It("resolves again on another engine", func() {
		mb := NewMethodBind("Node2D", "set_position", hash)
		_, err := mb.Resolve(env.engine)
		Expect(err).To(BeNil())

		other := newTestEnv()
		_, err = mb.Resolve(other.engine)
		Expect(err).To(MatchError(ContainSubstring("class not registered")))
	})

	It("fails a wrong signature before any native call", func() {
		mb := NewMethodBind("Node2D", "set_position", Signature(false, VariantNil, VariantVector3))
		obj := env.engine.Wrap(1, Intern("Node2D"))

		_, err := BeginCall(env.ctx, mb, obj)
		Expect(err).To(BeAssignableToTypeOf(&BindResolutionError{}))
		Expect(errors.Is(err, &BindResolutionError{})).To(BeTrue())
		Expect(env.engine.Stats().NativeCalls).To(BeZero())
		Expect(target.Calls()).To(BeEmpty())
	})

	It("does not cache failures", func() {
		mb := NewMethodBind("Node2D", "missing", hash)

		_, err := mb.Resolve(env.engine)
		Expect(err).To(HaveOccurred())
		_, err = mb.Resolve(env.engine)
		Expect(err).To(HaveOccurred())

		Expect(env.engine.Stats().NativeLookups).To(Equal(uint64(2)))
	})
})
