package objbind

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Allocator manages native memory whose ownership crosses the boundary:
// records returned by native methods are freed through it, and records
// handed to native code as owned results are allocated through it.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32) error
}

type unexportedFunctionError struct {
	name string
}

func (e unexportedFunctionError) Error() string {
	return fmt.Sprintf("the guest module does not export the \"%s\" function", e.name)
}

func (e unexportedFunctionError) Unwrap() error {
	return ErrNoAllocator
}

// moduleAllocator uses the malloc and free exports of the guest.
type moduleAllocator struct {
	mod api.Module
}

func newModuleAllocator(mod api.Module) Allocator {
	return &moduleAllocator{mod: mod}
}

func (a *moduleAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	malloc := a.mod.ExportedFunction("malloc")
	if malloc == nil {
		return 0, unexportedFunctionError{name: "malloc"}
	}

	res, err := malloc.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("could not allocate %d bytes: %w", size, err)
	}

	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, fmt.Errorf("could not allocate %d bytes: guest out of memory", size)
	}

	return ptr, nil
}

func (a *moduleAllocator) Free(ctx context.Context, ptr uint32) error {
	free := a.mod.ExportedFunction("free")
	if free == nil {
		return unexportedFunctionError{name: "free"}
	}

	_, err := free.Call(ctx, api.EncodeU32(ptr))
	if err != nil {
		return fmt.Errorf("could not free %#x: %w", ptr, err)
	}

	return nil
}
