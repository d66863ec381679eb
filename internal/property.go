package objbind

import (
	"fmt"
	"sync/atomic"
)

type propertyAccessors struct {
	owner  *engine
	getter *MethodBind
	setter *MethodBind
}

// PropertyBind resolves a property to its accessor methods through the
// native property table, once per engine.
type PropertyBind struct {
	class      StringName
	name       StringName
	getterHash uint64
	setterHash uint64
	cached     atomic.Pointer[propertyAccessors]
}

func NewPropertyBind(class, name string, getterHash, setterHash uint64) *PropertyBind {
	return &PropertyBind{
		class:      Intern(class),
		name:       Intern(name),
		getterHash: getterHash,
		setterHash: setterHash,
	}
}

func (pb *PropertyBind) Class() StringName {
	return pb.class
}

func (pb *PropertyBind) Name() StringName {
	return pb.name
}

func (pb *PropertyBind) accessors(obj *Object) (*propertyAccessors, error) {
	if _, err := obj.receiver(); err != nil {
		return nil, fmt.Errorf("could not access property %s.%s: %w", pb.class, pb.name, err)
	}

	e := obj.engine
	if cached := pb.cached.Load(); cached != nil && cached.owner == e {
		return cached, nil
	}

	property, err := e.classDB.Property(pb.class, pb.name)
	if err != nil {
		return nil, err
	}

	accessors := &propertyAccessors{
		owner: e,
		getter: &MethodBind{
			class:  pb.class,
			method: property.Getter,
			hash:   pb.getterHash,
		},
	}

	if !property.IsReadOnly() {
		accessors.setter = &MethodBind{
			class:  pb.class,
			method: property.Setter,
			hash:   pb.setterHash,
		}
	}

	pb.cached.Store(accessors)
	return accessors, nil
}

// Getter returns the bind of the property's getter method.
func (pb *PropertyBind) Getter(obj *Object) (*MethodBind, error) {
	accessors, err := pb.accessors(obj)
	if err != nil {
		return nil, err
	}
	return accessors.getter, nil
}

// Setter returns the bind of the property's setter method, or
// ErrReadOnlyProperty.
func (pb *PropertyBind) Setter(obj *Object) (*MethodBind, error) {
	accessors, err := pb.accessors(obj)
	if err != nil {
		return nil, err
	}

	if accessors.setter == nil {
		return nil, fmt.Errorf("could not set %s.%s: %w", pb.class, pb.name, ErrReadOnlyProperty)
	}

	return accessors.setter, nil
}
