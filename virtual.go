package objbind

import (
	"context"
	"fmt"

	internal "github.com/jerbob92/wazero-objbind/internal"
)

func virtualArg[T any](c Codec[T], args []Variant, i int) (T, error) {
	v, err := c.FromVariant(args[i])
	if err != nil {
		var zero T
		return zero, fmt.Errorf("argument %d: %w", i, err)
	}
	return v, nil
}

// Virtual0 declares an override of a virtual method that returns a value.
func Virtual0[R any](name string, ret Codec[R], fn func(ctx context.Context, self *Object) (R, error)) VirtualMethod {
	return VirtualMethod{
		Name:   internal.Intern(name),
		Return: ret.Type(),
		Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
			r, err := fn(ctx, self)
			if err != nil {
				return internal.NilVariant(), err
			}
			return ret.ToVariant(r), nil
		},
	}
}

func Virtual1[R, A1 any](name string, ret Codec[R], c1 Codec[A1], fn func(ctx context.Context, self *Object, a1 A1) (R, error)) VirtualMethod {
	return VirtualMethod{
		Name:   internal.Intern(name),
		Args:   []VariantType{c1.Type()},
		Return: ret.Type(),
		Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
			a1, err := virtualArg(c1, args, 0)
			if err != nil {
				return internal.NilVariant(), err
			}
			r, err := fn(ctx, self, a1)
			if err != nil {
				return internal.NilVariant(), err
			}
			return ret.ToVariant(r), nil
		},
	}
}

func Virtual2[R, A1, A2 any](name string, ret Codec[R], c1 Codec[A1], c2 Codec[A2], fn func(ctx context.Context, self *Object, a1 A1, a2 A2) (R, error)) VirtualMethod {
	return VirtualMethod{
		Name:   internal.Intern(name),
		Args:   []VariantType{c1.Type(), c2.Type()},
		Return: ret.Type(),
		Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
			a1, err := virtualArg(c1, args, 0)
			if err != nil {
				return internal.NilVariant(), err
			}
			a2, err := virtualArg(c2, args, 1)
			if err != nil {
				return internal.NilVariant(), err
			}
			r, err := fn(ctx, self, a1, a2)
			if err != nil {
				return internal.NilVariant(), err
			}
			return ret.ToVariant(r), nil
		},
	}
}

// VirtualVoid0 declares an override of a virtual method without result.
func VirtualVoid0(name string, fn func(ctx context.Context, self *Object) error) VirtualMethod {
	return VirtualMethod{
		Name: internal.Intern(name),
		Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
			return internal.NilVariant(), fn(ctx, self)
		},
	}
}

func VirtualVoid1[A1 any](name string, c1 Codec[A1], fn func(ctx context.Context, self *Object, a1 A1) error) VirtualMethod {
	return VirtualMethod{
		Name: internal.Intern(name),
		Args: []VariantType{c1.Type()},
		Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
			a1, err := virtualArg(c1, args, 0)
			if err != nil {
				return internal.NilVariant(), err
			}
			return internal.NilVariant(), fn(ctx, self, a1)
		},
	}
}

func VirtualVoid2[A1, A2 any](name string, c1 Codec[A1], c2 Codec[A2], fn func(ctx context.Context, self *Object, a1 A1, a2 A2) error) VirtualMethod {
	return VirtualMethod{
		Name: internal.Intern(name),
		Args: []VariantType{c1.Type(), c2.Type()},
		Fn: func(ctx context.Context, self *Object, args []Variant) (Variant, error) {
			a1, err := virtualArg(c1, args, 0)
			if err != nil {
				return internal.NilVariant(), err
			}
			a2, err := virtualArg(c2, args, 1)
			if err != nil {
				return internal.NilVariant(), err
			}
			return internal.NilVariant(), fn(ctx, self, a1, a2)
		},
	}
}
