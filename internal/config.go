package objbind

import (
	"context"

	"go.uber.org/zap"
)

const (
	DefaultScratchSize    = 64 * 1024
	DefaultHostModuleName = "objbind"
)

// SignalSubscriber is the native event subsystem. The engine subscribes the
// first time a managed trampoline is connected to a signal of an object, and
// unsubscribes when the last one is disconnected.
type SignalSubscriber interface {
	Subscribe(ctx context.Context, handle uint64, signal StringName) error
	Unsubscribe(ctx context.Context, handle uint64, signal StringName) error
}

type IEngineConfig interface {
	ScratchSize() uint32
	ScratchRegion() (base uint32, size uint32, ok bool)
	Allocator() Allocator
	SignalSubscriber() SignalSubscriber
	Logger() *zap.Logger
	HostModuleName() string
}

type EngineConfig struct {
	scratchSize      uint32
	scratchBase      uint32
	hasScratchRegion bool
	allocator        Allocator
	subscriber       SignalSubscriber
	logger           *zap.Logger
	hostModuleName   string
}

// NewConfig returns the default configuration: a scratch stack allocated from
// the guest's malloc export and the package logger.
func NewConfig() *EngineConfig {
	return &EngineConfig{
		scratchSize:    DefaultScratchSize,
		hostModuleName: DefaultHostModuleName,
	}
}

// WithScratchSize sets the size of the scratch stack allocated on attach.
func (c *EngineConfig) WithScratchSize(size uint32) *EngineConfig {
	c.scratchSize = size
	return c
}

// WithScratchRegion uses a fixed region of guest memory as scratch stack
// instead of allocating one. The guest must not use the region itself.
func (c *EngineConfig) WithScratchRegion(base, size uint32) *EngineConfig {
	c.scratchBase = base
	c.scratchSize = size
	c.hasScratchRegion = true
	return c
}

// WithAllocator overrides the allocator used for memory that changes owner
// across the boundary (returned strings and arrays, returned variants).
func (c *EngineConfig) WithAllocator(a Allocator) *EngineConfig {
	c.allocator = a
	return c
}

func (c *EngineConfig) WithSignalSubscriber(s SignalSubscriber) *EngineConfig {
	c.subscriber = s
	return c
}

func (c *EngineConfig) WithLogger(l *zap.Logger) *EngineConfig {
	c.logger = l
	return c
}

func (c *EngineConfig) WithHostModuleName(name string) *EngineConfig {
	c.hostModuleName = name
	return c
}

func (c *EngineConfig) ScratchSize() uint32 {
	return c.scratchSize
}

func (c *EngineConfig) ScratchRegion() (uint32, uint32, bool) {
	return c.scratchBase, c.scratchSize, c.hasScratchRegion
}

func (c *EngineConfig) Allocator() Allocator {
	return c.allocator
}

func (c *EngineConfig) SignalSubscriber() SignalSubscriber {
	return c.subscriber
}

func (c *EngineConfig) Logger() *zap.Logger {
	if c.logger == nil {
		return Logger()
	}
	return c.logger
}

func (c *EngineConfig) HostModuleName() string {
	return c.hostModuleName
}
