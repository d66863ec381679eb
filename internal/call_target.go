package objbind

import (
	"context"
)

// CallTarget is a resolved native entry point. The parameters and results
// are wire values encoded with the api.Encode* helpers of wazero, which
// makes api.Function a CallTarget.
type CallTarget interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// CallTargetFunc adapts a Go function to a CallTarget. It is used for native
// methods implemented on the host side and in tests.
type CallTargetFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

func (f CallTargetFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}
