package types

// Handle is an opaque reference to an object owned by the native engine.
// The zero Handle never refers to an object.
type Handle uint64

func (h Handle) IsValid() bool {
	return h != 0
}

type Vector2 struct {
	X float32
	Y float32
}

type Vector3 struct {
	X float32
	Y float32
	Z float32
}

// Color is an RGBA color with float components in the 0..1 range.
type Color struct {
	R float32
	G float32
	B float32
	A float32
}

// ColorWhite is opaque white, the engine's default modulate color.
var ColorWhite = Color{R: 1, G: 1, B: 1, A: 1}

type Rect2 struct {
	Position Vector2
	Size     Vector2
}

// Transform2D is a 2x3 matrix: two basis columns and an origin.
type Transform2D struct {
	X      Vector2
	Y      Vector2
	Origin Vector2
}

// Transform2DIdentity is the transform that leaves points unchanged.
var Transform2DIdentity = Transform2D{X: Vector2{X: 1}, Y: Vector2{Y: 1}}
