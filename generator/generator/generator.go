package generator

import (
	"encoding/json"
	"fmt"
	"go/token"
	"io"
	"sort"
	"strings"
	"unicode"

	. "github.com/dave/jennifer/jen"
	"golang.org/x/tools/go/packages"
)

const (
	objbindPkg = "github.com/jerbob92/wazero-objbind"
	typesPkg   = "github.com/jerbob92/wazero-objbind/types"
)

// PackageName returns the name of the package the given file belongs to, the
// way go generate passes it in $GOFILE.
func PackageName(dir, fileName string) (string, error) {
	fset := token.NewFileSet()
	pkgs, err := packages.Load(&packages.Config{
		Dir:  dir,
		Fset: fset,
		Mode: packages.NeedName,
	}, fmt.Sprintf("file=%s", fileName))
	if err != nil {
		return "", err
	}

	if len(pkgs) == 0 || pkgs[0].Name == "" {
		return "", fmt.Errorf("could not find the package of %s", fileName)
	}

	return pkgs[0].Name, nil
}

func generateGoName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i := range parts {
		parts[i] = string(unicode.ToUpper(rune(parts[i][0]))) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

func lowerFirst(name string) string {
	if name == "" {
		return name
	}
	return string(unicode.ToLower(rune(name[0]))) + name[1:]
}

func argName(arg Arg, i int) string {
	name := lowerFirst(generateGoName(arg.Name))
	if name == "" || token.IsKeyword(name) || name == "ctx" || name == "o" {
		name = fmt.Sprintf("arg%d", i)
	}
	return name
}

type generator struct {
	api *API
}

// Generate renders the bindings of the API as a Go file of package pkg.
func Generate(api *API, pkg string, w io.Writer) error {
	f, err := GenerateFile(api, pkg)
	if err != nil {
		return err
	}
	return f.Render(w)
}

func GenerateFile(api *API, pkg string) (*File, error) {
	g := &generator{api: api}

	f := NewFile(pkg)
	f.HeaderComment("Code generated by objbind-gen. DO NOT EDIT.")
	f.ImportName(objbindPkg, "objbind")
	f.ImportName(typesPkg, "types")

	classes := make([]Class, len(api.Classes))
	copy(classes, api.Classes)
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Name < classes[j].Name
	})

	for i := range classes {
		if err := g.class(f, &classes[i]); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// typeOf returns the Go type and the codec expression of an API type.
func (g *generator) typeOf(name string) (Code, Code) {
	if _, ok := g.api.class(name); ok {
		return Op("*").Qual(objbindPkg, "Object"), Qual(objbindPkg, "Objects").Call(Lit(name))
	}

	switch name {
	case "bool":
		return Bool(), Qual(objbindPkg, "Bool")
	case "int":
		return Int64(), Qual(objbindPkg, "Int")
	case "int32":
		return Int32(), Qual(objbindPkg, "Int32")
	case "float":
		return Float64(), Qual(objbindPkg, "Float")
	case "float32":
		return Float32(), Qual(objbindPkg, "Float32")
	case "String":
		return String(), Qual(objbindPkg, "String")
	case "PackedInt32Array":
		return Index().Int32(), Qual(objbindPkg, "PackedInt32Array")
	case "Object":
		return Op("*").Qual(objbindPkg, "Object"), Qual(objbindPkg, "Objects").Call(Lit(name))
	}

	return Qual(typesPkg, name), Qual(objbindPkg, name)
}

func isVoid(name string) bool {
	return name == "" || name == "void"
}

// defaultValue renders the default of an argument as a Go expression.
func (g *generator) defaultValue(arg Arg) (Code, error) {
	var floats []float64
	unmarshal := func(v any) error {
		if err := json.Unmarshal(arg.Default, v); err != nil {
			return fmt.Errorf("invalid default for %s %s: %w", arg.Type, arg.Name, err)
		}
		return nil
	}
	floatsOf := func(n int) error {
		if err := unmarshal(&floats); err != nil {
			return err
		}
		if len(floats) != n {
			return fmt.Errorf("default for %s %s needs %d components, got %d", arg.Type, arg.Name, n, len(floats))
		}
		return nil
	}
	vector2 := func(x, y float64) Code {
		return Qual(typesPkg, "Vector2").Values(Dict{Id("X"): Lit(x), Id("Y"): Lit(y)})
	}

	switch arg.Type {
	case "bool":
		var b bool
		if err := unmarshal(&b); err != nil {
			return nil, err
		}
		return Lit(b), nil
	case "int":
		var i int64
		if err := unmarshal(&i); err != nil {
			return nil, err
		}
		return Lit(i), nil
	case "int32":
		var i int32
		if err := unmarshal(&i); err != nil {
			return nil, err
		}
		return Lit(int(i)), nil
	case "float32":
		var fl float32
		if err := unmarshal(&fl); err != nil {
			return nil, err
		}
		return Lit(float64(fl)), nil
	case "float":
		var fl float64
		if err := unmarshal(&fl); err != nil {
			return nil, err
		}
		return Lit(fl), nil
	case "String":
		var s string
		if err := unmarshal(&s); err != nil {
			return nil, err
		}
		return Lit(s), nil
	case "Vector2":
		if err := floatsOf(2); err != nil {
			return nil, err
		}
		return vector2(floats[0], floats[1]), nil
	case "Vector3":
		if err := floatsOf(3); err != nil {
			return nil, err
		}
		return Qual(typesPkg, "Vector3").Values(Dict{Id("X"): Lit(floats[0]), Id("Y"): Lit(floats[1]), Id("Z"): Lit(floats[2])}), nil
	case "Color":
		if err := floatsOf(4); err != nil {
			return nil, err
		}
		return Qual(typesPkg, "Color").Values(Dict{Id("R"): Lit(floats[0]), Id("G"): Lit(floats[1]), Id("B"): Lit(floats[2]), Id("A"): Lit(floats[3])}), nil
	case "Rect2":
		if err := floatsOf(4); err != nil {
			return nil, err
		}
		return Qual(typesPkg, "Rect2").Values(Dict{Id("Position"): vector2(floats[0], floats[1]), Id("Size"): vector2(floats[2], floats[3])}), nil
	case "Transform2D":
		if err := floatsOf(6); err != nil {
			return nil, err
		}
		return Qual(typesPkg, "Transform2D").Values(Dict{Id("X"): vector2(floats[0], floats[1]), Id("Y"): vector2(floats[2], floats[3]), Id("Origin"): vector2(floats[4], floats[5])}), nil
	case "PackedInt32Array":
		var ints []int32
		if err := unmarshal(&ints); err != nil {
			return nil, err
		}
		values := make([]Code, len(ints))
		for i := range ints {
			values[i] = Lit(int(ints[i]))
		}
		return Index().Int32().Values(values...), nil
	}

	// Objects only default to null.
	if string(arg.Default) != "null" {
		return nil, fmt.Errorf("default for %s %s must be null", arg.Type, arg.Name)
	}
	return Nil(), nil
}

func (g *generator) class(f *File, class *Class) error {
	goName := generateGoName(class.Name)
	varPrefix := lowerFirst(goName)

	f.Commentf("%s wraps the native %s class.", goName, class.Name)
	if class.Parent == "" {
		f.Type().Id(goName).Struct(Op("*").Qual(objbindPkg, "Object"))
		f.Func().Id("As" + goName).Params(Id("obj").Op("*").Qual(objbindPkg, "Object")).Id(goName).Block(
			Return(Id(goName).Values(Dict{Id("Object"): Id("obj")})),
		)
	} else {
		parent := generateGoName(class.Parent)
		f.Type().Id(goName).Struct(Id(parent))
		f.Func().Id("As" + goName).Params(Id("obj").Op("*").Qual(objbindPkg, "Object")).Id(goName).Block(
			Return(Id(goName).Values(Dict{Id(parent): Id("As" + parent).Call(Id("obj"))})),
		)
	}

	for _, method := range class.Methods {
		if err := g.method(f, class, goName, varPrefix, method); err != nil {
			return err
		}
	}

	for _, property := range class.Properties {
		_, codec := g.typeOf(property.Type)
		propertyName := goName + generateGoName(property.Name) + "Property"
		if property.ReadOnly {
			f.Commentf("%s is read-only.", propertyName)
		}
		f.Var().Id(propertyName).Op("=").Qual(objbindPkg, "NewProperty").Call(Lit(class.Name), Lit(property.Name), codec)
	}

	for _, signal := range class.Signals {
		g.signal(f, goName, varPrefix, signal)
	}

	return nil
}

func (g *generator) method(f *File, class *Class, goName, varPrefix string, method Method) error {
	methodName := generateGoName(method.Name)
	bindVar := varPrefix + methodName

	constructor := "NewMethodBind"
	if method.Static {
		constructor = "NewStaticMethodBind"
	}
	f.Var().Id(bindVar).Op("=").Qual(objbindPkg, constructor).Call(
		Lit(class.Name),
		Lit(method.Name),
		Op(fmt.Sprintf("%#016x", g.api.Hash(method))),
	)

	params := []Code{Id("ctx").Qual("context", "Context")}
	callArgs := []Code{Id("ctx"), Id(bindVar)}
	if !method.Static {
		callArgs = append(callArgs, Id("o").Dot("Object"))
	}

	var results []Code
	adapter := "Call"
	if method.Static {
		adapter = "CallStatic"
	}
	if isVoid(method.Return) {
		adapter += "Void"
		results = []Code{Error()}
	} else {
		retType, retCodec := g.typeOf(method.Return)
		results = []Code{retType, Error()}
		callArgs = append(callArgs, retCodec)
	}
	adapter += fmt.Sprint(len(method.Args))

	for i, arg := range method.Args {
		name := argName(arg, i)
		argType, codec := g.typeOf(arg.Type)

		if len(arg.Default) == 0 {
			params = append(params, Id(name).Add(argType))
			callArgs = append(callArgs, codec, Id(name))
			continue
		}

		value, err := g.defaultValue(arg)
		if err != nil {
			return fmt.Errorf("method %s.%s: %w", class.Name, method.Name, err)
		}

		paramVar := bindVar + generateGoName(arg.Name) + "Param"
		if arg.Type == "PackedInt32Array" {
			f.Var().Id(paramVar).Op("=").Qual(objbindPkg, "Param").Types(argType).Values(Dict{
				Id("Codec"):   codec,
				Id("Default"): Func().Params().Add(argType).Block(Return(value)),
			})
		} else {
			f.Var().Id(paramVar).Op("=").Qual(objbindPkg, "NewParam").Call(codec, value)
		}

		params = append(params, Id(name).Qual(objbindPkg, "Optional").Types(argType))
		callArgs = append(callArgs, Id(paramVar).Dot("Codec"), Id(paramVar).Dot("Value").Call(Id(name)))
	}

	call := Return(Qual(objbindPkg, adapter).Call(callArgs...))

	if method.Static {
		f.Func().Id(goName + methodName).Params(params...).Params(results...).Block(call)
	} else {
		f.Func().Params(Id("o").Id(goName)).Id(methodName).Params(params...).Params(results...).Block(call)
	}

	return nil
}

func (g *generator) signal(f *File, goName, varPrefix string, signal Signal) {
	signalName := generateGoName(signal.Name)
	signalVar := varPrefix + signalName + "Signal"

	f.Var().Id(signalVar).Op("=").Qual(objbindPkg, "Intern").Call(Lit(signal.Name))

	types := make([]Code, len(signal.Args))
	codecs := make([]Code, len(signal.Args))
	for i, arg := range signal.Args {
		types[i], codecs[i] = g.typeOf(arg.Type)
	}

	handler := Op("*").Qual(objbindPkg, fmt.Sprintf("Handler%d", len(signal.Args)))
	if len(signal.Args) > 0 {
		handler = handler.Types(types...)
	}

	connectArgs := []Code{Id("ctx"), Id("o").Dot("Object"), Id(signalVar)}
	connectArgs = append(connectArgs, codecs...)
	connectArgs = append(connectArgs, Id("h"))

	f.Func().Params(Id("o").Id(goName)).Id("Connect"+signalName).Params(
		Id("ctx").Qual("context", "Context"),
		Id("h").Add(handler),
	).Error().Block(
		Return(Qual(objbindPkg, fmt.Sprintf("Connect%d", len(signal.Args))).Call(connectArgs...)),
	)

	f.Func().Params(Id("o").Id(goName)).Id("Disconnect"+signalName).Params(
		Id("ctx").Qual("context", "Context"),
		Id("h").Add(handler),
	).Error().Block(
		Return(Qual(objbindPkg, "Disconnect").Call(Id("ctx"), Id("o").Dot("Object"), Id(signalVar), Id("h"))),
	)
}
