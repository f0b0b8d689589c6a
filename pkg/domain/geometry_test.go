package domain_test

import (
	"testing"

	"github.com/aretw0/a11ybridge/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMat4_Mul(t *testing.T) {
	t.Run("Identity is neutral", func(t *testing.T) {
		m := domain.Translate(3, 4, 0).Mul(domain.Scale(2, 2, 1))
		assert.Equal(t, m, domain.Identity().Mul(m))
		assert.Equal(t, m, m.Mul(domain.Identity()))
	})

	t.Run("Right operand applies first", func(t *testing.T) {
		// translate after scale: (1,1) -> (2,2) -> (12,22)
		m := domain.Translate(10, 20, 0).Mul(domain.Scale(2, 2, 1))
		p := m.Map(1, 1, 0, 1)
		assert.Equal(t, domain.Vec4{X: 12, Y: 22, Z: 0, W: 1}, p)

		// scale after translate: (1,1) -> (11,21) -> (22,42)
		m = domain.Scale(2, 2, 1).Mul(domain.Translate(10, 20, 0))
		p = m.Map(1, 1, 0, 1)
		assert.Equal(t, domain.Vec4{X: 22, Y: 42, Z: 0, W: 1}, p)
	})

	t.Run("Column major layout", func(t *testing.T) {
		m := domain.Translate(5, 6, 7)
		assert.Equal(t, float32(5), m.At(0, 3))
		assert.Equal(t, float32(6), m.At(1, 3))
		assert.Equal(t, float32(7), m.At(2, 3))
		assert.Equal(t, float32(5), m[12])
	})
}

func TestMat4_MapRect(t *testing.T) {
	t.Run("Scale and translate", func(t *testing.T) {
		m := domain.Translate(100, 50, 0).Mul(domain.Scale(0.5, 0.5, 1))
		got := m.MapRect(domain.LTRB(0, 0, 10, 20))
		assert.Equal(t, domain.LTRB(100, 50, 105, 60), got)
	})

	t.Run("Negative scale is normalized", func(t *testing.T) {
		got := domain.Scale(-1, -1, 1).MapRect(domain.LTRB(0, 0, 10, 10))
		assert.Equal(t, domain.LTRB(-10, -10, 0, 0), got)
	})

	t.Run("Rotation uses all corners", func(t *testing.T) {
		// 90 degree rotation about the origin: (x, y) -> (-y, x)
		rot := domain.Mat4{
			0, 1, 0, 0,
			-1, 0, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}
		got := rot.MapRect(domain.LTRB(0, 0, 10, 20))
		assert.Equal(t, domain.LTRB(-20, 0, 0, 10), got)
	})
}

func TestRect(t *testing.T) {
	r := domain.LTRB(0, 0, 10, 10)
	assert.True(t, r.Contains(0, 0))
	assert.True(t, r.Contains(9.9, 9.9))
	assert.False(t, r.Contains(10, 5), "right edge is exclusive")
	assert.False(t, r.Contains(-1, 5))

	assert.Equal(t, domain.LTRB(1, 2, 3, 4), domain.LTRB(3, 4, 1, 2).Sort())
	assert.True(t, domain.Rect{}.IsEmpty())
	assert.False(t, r.IsEmpty())
}

func TestMat4_OrIdentity(t *testing.T) {
	assert.Equal(t, domain.Identity(), domain.Mat4{}.OrIdentity())
	s := domain.Scale(2, 2, 1)
	assert.Equal(t, s, s.OrIdentity())
}
