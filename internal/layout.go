package objbind

import (
	"fmt"

	"github.com/jerbob92/wazero-objbind/types"

	"github.com/tetratelabs/wazero/api"
)

// Sizes of the native layouts of the aggregate types. All aggregates are
// sequences of little-endian float32 and are 4-byte aligned.
const (
	SizeVector2     = 8
	SizeVector3     = 12
	SizeColor       = 16
	SizeRect2       = 16
	SizeTransform2D = 24
)

func readFloats(mem api.Memory, ptr uint32, out []float32) error {
	for i := range out {
		v, ok := mem.ReadFloat32Le(ptr + uint32(i)*4)
		if !ok {
			return fmt.Errorf("could not read float at %#x", ptr+uint32(i)*4)
		}
		out[i] = v
	}
	return nil
}

func writeFloats(mem api.Memory, ptr uint32, in ...float32) error {
	for i := range in {
		if !mem.WriteFloat32Le(ptr+uint32(i)*4, in[i]) {
			return fmt.Errorf("could not write float at %#x", ptr+uint32(i)*4)
		}
	}
	return nil
}

func ReadVector2(mem api.Memory, ptr uint32) (types.Vector2, error) {
	var f [2]float32
	if err := readFloats(mem, ptr, f[:]); err != nil {
		return types.Vector2{}, err
	}
	return types.Vector2{X: f[0], Y: f[1]}, nil
}

func WriteVector2(mem api.Memory, ptr uint32, v types.Vector2) error {
	return writeFloats(mem, ptr, v.X, v.Y)
}

func ReadVector3(mem api.Memory, ptr uint32) (types.Vector3, error) {
	var f [3]float32
	if err := readFloats(mem, ptr, f[:]); err != nil {
		return types.Vector3{}, err
	}
	return types.Vector3{X: f[0], Y: f[1], Z: f[2]}, nil
}

func WriteVector3(mem api.Memory, ptr uint32, v types.Vector3) error {
	return writeFloats(mem, ptr, v.X, v.Y, v.Z)
}

func ReadColor(mem api.Memory, ptr uint32) (types.Color, error) {
	var f [4]float32
	if err := readFloats(mem, ptr, f[:]); err != nil {
		return types.Color{}, err
	}
	return types.Color{R: f[0], G: f[1], B: f[2], A: f[3]}, nil
}

func WriteColor(mem api.Memory, ptr uint32, c types.Color) error {
	return writeFloats(mem, ptr, c.R, c.G, c.B, c.A)
}

func ReadRect2(mem api.Memory, ptr uint32) (types.Rect2, error) {
	var f [4]float32
	if err := readFloats(mem, ptr, f[:]); err != nil {
		return types.Rect2{}, err
	}
	return types.Rect2{
		Position: types.Vector2{X: f[0], Y: f[1]},
		Size:     types.Vector2{X: f[2], Y: f[3]},
	}, nil
}

func WriteRect2(mem api.Memory, ptr uint32, r types.Rect2) error {
	return writeFloats(mem, ptr, r.Position.X, r.Position.Y, r.Size.X, r.Size.Y)
}

func ReadTransform2D(mem api.Memory, ptr uint32) (types.Transform2D, error) {
	var f [6]float32
	if err := readFloats(mem, ptr, f[:]); err != nil {
		return types.Transform2D{}, err
	}
	return types.Transform2D{
		X:      types.Vector2{X: f[0], Y: f[1]},
		Y:      types.Vector2{X: f[2], Y: f[3]},
		Origin: types.Vector2{X: f[4], Y: f[5]},
	}, nil
}

func WriteTransform2D(mem api.Memory, ptr uint32, t types.Transform2D) error {
	return writeFloats(mem, ptr, t.X.X, t.X.Y, t.Y.X, t.Y.Y, t.Origin.X, t.Origin.Y)
}
