package objbind

import (
	"errors"
	"fmt"

	xsync "github.com/puzpuzpuz/xsync/v2"
)

type MethodFlags uint32

const (
	MethodFlagStatic MethodFlags = 1 << iota
	MethodFlagConst
	MethodFlagVirtual
)

func (f MethodFlags) IsStatic() bool {
	return f&MethodFlagStatic != 0
}

// NativeMethod is a method as registered by the native runtime.
type NativeMethod struct {
	Class  StringName
	Name   StringName
	Hash   uint64
	Flags  MethodFlags
	Target CallTarget
}

// NativeProperty maps a property to its accessor methods. Setter is empty
// for read-only properties.
type NativeProperty struct {
	Class  StringName
	Name   StringName
	Getter StringName
	Setter StringName
}

func (p NativeProperty) IsReadOnly() bool {
	return p.Setter.IsEmpty()
}

type NativeSignal struct {
	Class StringName
	Name  StringName
	Args  []VariantType
}

type nativeClass struct {
	name       StringName
	parent     StringName
	methods    *xsync.MapOf[StringName, *NativeMethod]
	properties *xsync.MapOf[StringName, *NativeProperty]
	signals    *xsync.MapOf[StringName, *NativeSignal]
}

// ClassDB is the native runtime's class registry: classes with their parent,
// methods, properties and signals. The guest fills it through the
// registration host functions; it can also be filled from Go when the native
// side is implemented on the host.
type ClassDB struct {
	classes *xsync.MapOf[StringName, *nativeClass]
}

func NewClassDB() *ClassDB {
	return &ClassDB{
		classes: newStringNameMap[*nativeClass](),
	}
}

func (db *ClassDB) RegisterClass(name, parent StringName) error {
	if name.IsEmpty() {
		return fmt.Errorf("could not register class: empty name")
	}

	if !parent.IsEmpty() && !db.HasClass(parent) {
		return fmt.Errorf("could not register class %s: parent class %s is not registered", name, parent)
	}

	_, loaded := db.classes.LoadOrCompute(name, func() *nativeClass {
		return &nativeClass{
			name:       name,
			parent:     parent,
			methods:    newStringNameMap[*NativeMethod](),
			properties: newStringNameMap[*NativeProperty](),
			signals:    newStringNameMap[*NativeSignal](),
		}
	})
	if loaded {
		return fmt.Errorf("could not register class %s: already registered", name)
	}

	return nil
}

func (db *ClassDB) class(name StringName) (*nativeClass, error) {
	class, ok := db.classes.Load(name)
	if !ok {
		return nil, fmt.Errorf("class %s is not registered", name)
	}
	return class, nil
}

func (db *ClassDB) RegisterMethod(method NativeMethod) error {
	class, err := db.class(method.Class)
	if err != nil {
		return fmt.Errorf("could not register method %s: %w", method.Name, err)
	}

	if method.Target == nil {
		return fmt.Errorf("could not register method %s.%s: no call target", method.Class, method.Name)
	}

	if _, loaded := class.methods.LoadOrStore(method.Name, &method); loaded {
		return fmt.Errorf("could not register method %s.%s: already registered", method.Class, method.Name)
	}

	return nil
}

func (db *ClassDB) RegisterProperty(property NativeProperty) error {
	class, err := db.class(property.Class)
	if err != nil {
		return fmt.Errorf("could not register property %s: %w", property.Name, err)
	}

	if property.Getter.IsEmpty() {
		return fmt.Errorf("could not register property %s.%s: no getter", property.Class, property.Name)
	}

	if _, loaded := class.properties.LoadOrStore(property.Name, &property); loaded {
		return fmt.Errorf("could not register property %s.%s: already registered", property.Class, property.Name)
	}

	return nil
}

func (db *ClassDB) RegisterSignal(signal NativeSignal) error {
	class, err := db.class(signal.Class)
	if err != nil {
		return fmt.Errorf("could not register signal %s: %w", signal.Name, err)
	}

	for i := range signal.Args {
		if !signal.Args[i].IsValid() {
			return fmt.Errorf("could not register signal %s.%s: argument %d has invalid type %s", signal.Class, signal.Name, i, signal.Args[i])
		}
	}

	if _, loaded := class.signals.LoadOrStore(signal.Name, &signal); loaded {
		return fmt.Errorf("could not register signal %s.%s: already registered", signal.Class, signal.Name)
	}

	return nil
}

func (db *ClassDB) HasClass(name StringName) bool {
	_, ok := db.classes.Load(name)
	return ok
}

// Parent returns the parent of a class, or the empty name for a root class.
func (db *ClassDB) Parent(name StringName) (StringName, bool) {
	class, ok := db.classes.Load(name)
	if !ok {
		return StringName{}, false
	}
	return class.parent, true
}

// IsParentClass reports whether class is parent or inherits from it.
func (db *ClassDB) IsParentClass(class, parent StringName) bool {
	for current := class; !current.IsEmpty(); {
		if current == parent {
			return true
		}

		c, ok := db.classes.Load(current)
		if !ok {
			return false
		}
		current = c.parent
	}
	return false
}

// walk calls fn for the class and every ancestor until fn returns true.
func (db *ClassDB) walk(name StringName, fn func(class *nativeClass) bool) error {
	for current := name; !current.IsEmpty(); {
		class, ok := db.classes.Load(current)
		if !ok {
			return &BindResolutionError{
				Kind:   MemberClass,
				Class:  current.String(),
				Reason: "class not registered",
			}
		}

		if fn(class) {
			return nil
		}
		current = class.parent
	}
	return nil
}

// Method finds a method on the class or its ancestors.
func (db *ClassDB) Method(class, name StringName) (*NativeMethod, error) {
	var found *NativeMethod
	err := db.walk(class, func(c *nativeClass) bool {
		found, _ = c.methods.Load(name)
		return found != nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, notFound(MemberMethod, class, name, 0)
	}

	return found, nil
}

// LookupMethod resolves a method and checks its compatibility signature.
func (db *ClassDB) LookupMethod(class, name StringName, hash uint64) (CallTarget, error) {
	method, err := db.Method(class, name)
	if err != nil {
		var bindErr *BindResolutionError
		if errors.As(err, &bindErr) && bindErr.Kind == MemberMethod {
			bindErr.Expected = hash
		}
		return nil, err
	}

	if method.Hash != hash {
		return nil, &BindResolutionError{
			Kind:     MemberMethod,
			Class:    class.String(),
			Member:   name.String(),
			Expected: hash,
			Actual:   method.Hash,
			Reason:   "signature mismatch",
		}
	}

	return method.Target, nil
}

func (db *ClassDB) Property(class, name StringName) (*NativeProperty, error) {
	var found *NativeProperty
	err := db.walk(class, func(c *nativeClass) bool {
		found, _ = c.properties.Load(name)
		return found != nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, notFound(MemberProperty, class, name, 0)
	}

	return found, nil
}

func (db *ClassDB) Signal(class, name StringName) (*NativeSignal, error) {
	var found *NativeSignal
	err := db.walk(class, func(c *nativeClass) bool {
		found, _ = c.signals.Load(name)
		return found != nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, notFound(MemberSignal, class, name, 0)
	}

	return found, nil
}
