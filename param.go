package objbind

// Optional is an argument that may be left out at the call site, in which
// case the parameter's default is used.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Param is a parameter with a documented default value. It is a Codec, so
// it can be passed to the call adapters in place of the codec of its type.
type Param[T any] struct {
	Codec[T]
	Default func() T
}

// NewParam declares a parameter whose default is the given value. Use a
// Param literal with a Default function for values that must not be shared
// between calls, such as slices.
func NewParam[T any](codec Codec[T], defaultValue T) Param[T] {
	return Param[T]{
		Codec: codec,
		Default: func() T {
			return defaultValue
		},
	}
}

// Value returns the argument to pass: the given value, or a freshly
// synthesized default.
func (p Param[T]) Value(opt Optional[T]) T {
	if v, ok := opt.Get(); ok {
		return v
	}
	if p.Default == nil {
		var zero T
		return zero
	}
	return p.Default()
}
