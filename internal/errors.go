package objbind

import (
	"errors"
	"fmt"
)

var (
	ErrNullReceiver          = errors.New("instance call with a null receiver")
	ErrHandleInvalidated     = errors.New("native object has been freed")
	ErrReadOnlyProperty      = errors.New("property has no setter")
	ErrFrameOverflow         = errors.New("call frame exhausted the scratch stack")
	ErrNoModule              = errors.New("no native module attached to the engine")
	ErrNoAllocator           = errors.New("no allocator configured to release native memory")
	ErrDelegateNotComparable = errors.New("signal delegate must be comparable, use a pointer")
)

// MemberKind names the kind of member a bind failed for.
type MemberKind string

const (
	MemberMethod   MemberKind = "method"
	MemberProperty MemberKind = "property"
	MemberSignal   MemberKind = "signal"
	MemberClass    MemberKind = "class"
)

// BindResolutionError reports that a symbolic member could not be resolved
// against the native class registry. It indicates that the bindings were
// generated for a different engine build and is never retried.
type BindResolutionError struct {
	Kind     MemberKind
	Class    string
	Member   string
	Expected uint64
	Actual   uint64
	Reason   string
}

func (e *BindResolutionError) Error() string {
	if e.Actual != 0 {
		return fmt.Sprintf("could not bind %s %s.%s (signature %#016x): %s, native signature is %#016x", e.Kind, e.Class, e.Member, e.Expected, e.Reason, e.Actual)
	}
	if e.Expected != 0 {
		return fmt.Sprintf("could not bind %s %s.%s (signature %#016x): %s", e.Kind, e.Class, e.Member, e.Expected, e.Reason)
	}
	return fmt.Sprintf("could not bind %s %s.%s: %s", e.Kind, e.Class, e.Member, e.Reason)
}

func (e *BindResolutionError) Is(target error) bool {
	_, ok := target.(*BindResolutionError)
	return ok
}

// ArgumentArityMismatch reports a native-originated call or signal whose
// argument count differs from what the managed side decodes.
type ArgumentArityMismatch struct {
	Kind     MemberKind
	Class    string
	Member   string
	Expected int
	Actual   int
}

func (e *ArgumentArityMismatch) Error() string {
	return fmt.Sprintf("%s %s.%s called with %d argument(s), expected %d", e.Kind, e.Class, e.Member, e.Actual, e.Expected)
}

func (e *ArgumentArityMismatch) Is(target error) bool {
	_, ok := target.(*ArgumentArityMismatch)
	return ok
}

func notFound(kind MemberKind, class, member StringName, hash uint64) *BindResolutionError {
	return &BindResolutionError{
		Kind:     kind,
		Class:    class.String(),
		Member:   member.String(),
		Expected: hash,
		Reason:   "not found",
	}
}
