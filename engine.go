package objbind

import (
	internal "github.com/jerbob92/wazero-objbind/internal"

	"github.com/tetratelabs/wazero"
)

type Engine interface {
	internal.IEngine
	NewFunctionExporterForModule(guest wazero.CompiledModule) FunctionExporter
}

type EngineKey = internal.EngineKey

type IEngineConfig = internal.IEngineConfig

type Allocator = internal.Allocator

type SignalSubscriber = internal.SignalSubscriber

func NewConfig() *internal.EngineConfig {
	return internal.NewConfig()
}

func CreateEngine(config internal.IEngineConfig) Engine {
	return &wazeroEngine{
		config:  config,
		IEngine: internal.CreateEngine(config),
	}
}
