package generator

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jerbob92/wazero-objbind"
)

// API describes the native classes to generate bindings for.
type API struct {
	Classes []Class `json:"classes"`
}

type Class struct {
	Name       string     `json:"name"`
	Parent     string     `json:"parent"`
	Methods    []Method   `json:"methods"`
	Properties []Property `json:"properties"`
	Signals    []Signal   `json:"signals"`
}

type Method struct {
	Name   string `json:"name"`
	Static bool   `json:"static"`
	Return string `json:"return"`
	Args   []Arg  `json:"args"`
}

type Arg struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Default json.RawMessage `json:"default,omitempty"`
}

type Property struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ReadOnly bool   `json:"read_only"`
}

type Signal struct {
	Name string `json:"name"`
	Args []Arg  `json:"args"`
}

// Limits of the generic adapters in the objbind package.
const (
	maxMethodArgs = 5
	maxSignalArgs = 3
)

func LoadAPI(path string) (*API, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseAPI(data)
}

func ParseAPI(data []byte) (*API, error) {
	api := &API{}
	if err := json.Unmarshal(data, api); err != nil {
		return nil, fmt.Errorf("could not parse API description: %w", err)
	}

	if err := api.validate(); err != nil {
		return nil, err
	}

	return api, nil
}

func (a *API) class(name string) (*Class, bool) {
	for i := range a.Classes {
		if a.Classes[i].Name == name {
			return &a.Classes[i], true
		}
	}
	return nil, false
}

func (a *API) validate() error {
	seen := map[string]bool{}
	for i := range a.Classes {
		class := &a.Classes[i]
		if class.Name == "" {
			return fmt.Errorf("class %d has no name", i)
		}
		if seen[class.Name] {
			return fmt.Errorf("class %s is described twice", class.Name)
		}
		seen[class.Name] = true

		if class.Parent != "" {
			if _, ok := a.class(class.Parent); !ok {
				return fmt.Errorf("class %s: parent %s is not described", class.Name, class.Parent)
			}
		}

		for _, method := range class.Methods {
			if len(method.Args) > maxMethodArgs {
				return fmt.Errorf("method %s.%s has %d arguments, at most %d are supported", class.Name, method.Name, len(method.Args), maxMethodArgs)
			}
			if err := a.checkType(method.Return, true); err != nil {
				return fmt.Errorf("method %s.%s: %w", class.Name, method.Name, err)
			}
			for _, arg := range method.Args {
				if err := a.checkType(arg.Type, false); err != nil {
					return fmt.Errorf("method %s.%s argument %s: %w", class.Name, method.Name, arg.Name, err)
				}
			}
		}

		for _, property := range class.Properties {
			if err := a.checkType(property.Type, false); err != nil {
				return fmt.Errorf("property %s.%s: %w", class.Name, property.Name, err)
			}
		}

		for _, signal := range class.Signals {
			if len(signal.Args) > maxSignalArgs {
				return fmt.Errorf("signal %s.%s has %d arguments, at most %d are supported", class.Name, signal.Name, len(signal.Args), maxSignalArgs)
			}
			for _, arg := range signal.Args {
				if err := a.checkType(arg.Type, false); err != nil {
					return fmt.Errorf("signal %s.%s argument %s: %w", class.Name, signal.Name, arg.Name, err)
				}
			}
		}
	}

	return nil
}

func (a *API) checkType(name string, allowVoid bool) error {
	if name == "" || name == "void" {
		if allowVoid {
			return nil
		}
		return fmt.Errorf("void is not a value type")
	}
	if _, ok := a.class(name); ok {
		return nil
	}
	if _, err := objbind.ParseVariantType(name); err != nil {
		return err
	}
	return nil
}

// variantType returns the type tag used in compatibility signatures.
func (a *API) variantType(name string) objbind.VariantType {
	if _, ok := a.class(name); ok {
		return objbind.VariantObject
	}
	vt, _ := objbind.ParseVariantType(name)
	return vt
}

// Hash is the compatibility signature of the method.
func (a *API) Hash(method Method) uint64 {
	args := make([]objbind.VariantType, len(method.Args))
	for i := range method.Args {
		args[i] = a.variantType(method.Args[i].Type)
	}
	return objbind.Signature(method.Static, a.variantType(method.Return), args...)
}
