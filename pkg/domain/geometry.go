package domain

// Vec4 is a homogeneous coordinate.
type Vec4 struct {
	X, Y, Z, W float32
}

// Rect is an axis-aligned rectangle in local or screen coordinates.
// Left/Top are inclusive, Right/Bottom exclusive.
type Rect struct {
	Left   float32 `json:"left" yaml:"left"`
	Top    float32 `json:"top" yaml:"top"`
	Right  float32 `json:"right" yaml:"right"`
	Bottom float32 `json:"bottom" yaml:"bottom"`
}

// LTRB builds a Rect from its edges.
func LTRB(left, top, right, bottom float32) Rect {
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Width returns the horizontal extent.
func (r Rect) Width() float32 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() float32 { return r.Bottom - r.Top }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return !(r.Left < r.Right && r.Top < r.Bottom) }

// Contains reports whether the point lies within the rectangle.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Sort swaps edges so that Left <= Right and Top <= Bottom.
func (r Rect) Sort() Rect {
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Top > r.Bottom {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r
}

// Mat4 is a 4x4 matrix stored in column-major order, the layout used on the wire.
// Element (row, col) lives at index col*4+row.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Scale returns a scaling matrix.
func Scale(sx, sy, sz float32) Mat4 {
	m := Identity()
	m[0] = sx
	m[5] = sy
	m[10] = sz
	return m
}

// Translate returns a translation matrix.
func Translate(tx, ty, tz float32) Mat4 {
	m := Identity()
	m[12] = tx
	m[13] = ty
	m[14] = tz
	return m
}

// At returns the element at (row, col).
func (m Mat4) At(row, col int) float32 {
	return m[col*4+row]
}

// IsZero reports whether every element is zero. The zero Mat4 is what an
// unset transform decodes to; it is never a meaningful node transform.
func (m Mat4) IsZero() bool {
	return m == Mat4{}
}

// OrIdentity returns m, or the identity matrix if m is the zero matrix.
func (m Mat4) OrIdentity() Mat4 {
	if m.IsZero() {
		return Identity()
	}
	return m
}

// Mul returns m × n. Applied to a point, n acts first.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Map transforms the homogeneous point (x, y, z, w).
func (m Mat4) Map(x, y, z, w float32) Vec4 {
	return Vec4{
		X: m[0]*x + m[4]*y + m[8]*z + m[12]*w,
		Y: m[1]*x + m[5]*y + m[9]*z + m[13]*w,
		Z: m[2]*x + m[6]*y + m[10]*z + m[14]*w,
		W: m[3]*x + m[7]*y + m[11]*z + m[15]*w,
	}
}

// MapRect maps the four corners of r (at z=0) and returns their sorted bounds.
func (m Mat4) MapRect(r Rect) Rect {
	corners := [4]Vec4{
		m.Map(r.Left, r.Top, 0, 1),
		m.Map(r.Right, r.Top, 0, 1),
		m.Map(r.Right, r.Bottom, 0, 1),
		m.Map(r.Left, r.Bottom, 0, 1),
	}
	out := Rect{
		Left: corners[0].X, Right: corners[0].X,
		Top: corners[0].Y, Bottom: corners[0].Y,
	}
	for _, c := range corners[1:] {
		out.Left = min(out.Left, c.X)
		out.Right = max(out.Right, c.X)
		out.Top = min(out.Top, c.Y)
		out.Bottom = max(out.Bottom, c.Y)
	}
	return out
}

// BoundingBox is the 3D location of a node as sent on the wire.
type BoundingBox struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Vec3 is a point in 3D space.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}
