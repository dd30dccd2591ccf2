package staging

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeZeroMaskIsExactCopy(t *testing.T) {
	base := uniform(100, 100, gray)
	edited := uniform(100, 100, gray)

	mask, err := NewChangeMaskBuilder().Build(base, edited, DefaultMaskParams())
	require.NoError(t, err)

	out, err := NewCompositor().Composite(base, edited, mask)
	require.NoError(t, err)
	assert.Equal(t, base.Pix, out.Pix)
}

func TestCompositePreservesBaseWhereMaskIsZero(t *testing.T) {
	base := noise(50, 40, 1)
	edited := noise(50, 40, 2)
	mask := image.NewGray(image.Rect(0, 0, 50, 40))
	rng := rand.New(rand.NewSource(5))
	for i := range mask.Pix {
		if rng.Intn(3) > 0 {
			mask.Pix[i] = uint8(rng.Intn(256))
		}
	}

	out, err := NewCompositor().Composite(base, edited, mask)
	require.NoError(t, err)
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				require.Equal(t, base.NRGBAAt(x, y), out.NRGBAAt(x, y), "pixel (%d,%d)", x, y)
			}
			require.Equal(t, uint8(255), out.NRGBAAt(x, y).A)
		}
	}
}

func TestCompositeBlendsLinearly(t *testing.T) {
	base := uniform(4, 1, black)
	edited := uniform(4, 1, white)
	mask := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(mask.Pix, []uint8{0, 64, 128, 255})

	out, err := NewCompositor().Composite(base, edited, mask)
	require.NoError(t, err)

	got := []uint8{out.Pix[0], out.Pix[4], out.Pix[8], out.Pix[12]}
	assert.Equal(t, []uint8{0, 64, 128, 255}, got)
}

func TestCompositeRejectsMismatchedMask(t *testing.T) {
	base := uniform(10, 10, gray)
	mask := image.NewGray(image.Rect(0, 0, 5, 5))
	_, err := NewCompositor().Composite(base, base, mask)
	assert.ErrorIs(t, err, ErrMaskSize)
}
