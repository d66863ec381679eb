package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jerbob92/wazero-objbind/generator/generator"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type Config struct {
	Output       string `short:"o" long:"output" description:"the file to write the bindings to" default:"objbind.gen.go"`
	Package      string `short:"p" long:"package" description:"the package name of the bindings, defaults to the package of $GOFILE"`
	Wasm         string `long:"wasm" description:"the native runtime to verify the description against"`
	InitFunction string `long:"init" description:"the function to execute to make the native runtime register its classes" default:"_initialize"`
	Verbose      bool   `short:"v" long:"verbose" description:"enable verbose logging"`

	Args struct {
		API string `positional-arg-name:"api.json" required:"1"`
	} `positional-args:"yes"`
}

var config Config

func die(log *zap.Logger, err error) {
	if err != nil {
		log.Fatal("objbind-gen failed", zap.Error(err))
	}
}

func main() {
	parser := flags.NewParser(&config, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := zap.NewNop()
	if config.Verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
	}
	defer log.Sync()

	api, err := generator.LoadAPI(config.Args.API)
	die(log, err)

	if config.Wasm != "" {
		wasmData, err := os.ReadFile(config.Wasm)
		die(log, err)
		die(log, generator.Verify(context.Background(), api, wasmData, config.InitFunction, log))
		log.Info("description matches the native runtime", zap.String("wasm", config.Wasm))
	}

	pkg := config.Package
	if pkg == "" {
		dir, err := filepath.Abs(".")
		die(log, err)

		fileName := os.Getenv("GOFILE")
		if fileName == "" {
			die(log, fmt.Errorf("no package given and $GOFILE is not set, run from go generate or pass --package"))
		}

		pkg, err = generator.PackageName(dir, fileName)
		die(log, err)
	}

	f, err := generator.GenerateFile(api, pkg)
	die(log, err)
	die(log, f.Save(config.Output))

	log.Info("wrote bindings", zap.String("file", config.Output), zap.Int("classes", len(api.Classes)))
}
