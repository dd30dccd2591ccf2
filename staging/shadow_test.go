package staging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShadowUnderNeverExceedsOpacity(t *testing.T) {
	layer := uniform(120, 90, red)
	fillRect(layer, image.Rect(0, 0, 120, 30), color.NRGBA{})

	s := NewShadowSynthesizer()
	for _, p := range []ShadowParams{
		{Blur: 16, Opacity: 70, Squash: 0.18},
		{Blur: 18, Opacity: 80, Squash: 0.22},
		{Blur: 22, Opacity: 90, Squash: 0.26},
		{Blur: 0, Opacity: 255, Squash: 1},
		{Blur: 3, Opacity: 1, Squash: 0.5},
	} {
		out, err := s.ShadowUnder(layer, p)
		require.NoError(t, err)
		require.Equal(t, layer.Bounds(), out.Bounds())
		for i := 0; i < len(out.Pix); i += 4 {
			require.Zero(t, out.Pix[i])
			require.Zero(t, out.Pix[i+1])
			require.Zero(t, out.Pix[i+2])
			require.LessOrEqual(t, int(out.Pix[i+3]), p.Opacity)
		}
	}
}

func TestShadowUnderIsAnchoredToBottom(t *testing.T) {
	layer := uniform(100, 100, red)

	out, err := NewShadowSynthesizer().ShadowUnder(layer, ShadowParams{Blur: 0, Opacity: 90, Squash: 0.2})
	require.NoError(t, err)

	for y := 0; y < 100; y++ {
		a := out.NRGBAAt(50, y).A
		if y < 80 {
			assert.Zero(t, a, "row %d above the squashed silhouette", y)
		} else {
			assert.Equal(t, uint8(90), a, "row %d inside the squashed silhouette", y)
		}
	}
}

func TestShadowUnderTransparentLayer(t *testing.T) {
	out, err := NewShadowSynthesizer().ShadowUnder(image.NewNRGBA(image.Rect(0, 0, 40, 40)), ShadowParams{Blur: 5, Opacity: 90, Squash: 0.3})
	require.NoError(t, err)
	for i := 3; i < len(out.Pix); i += 4 {
		require.Zero(t, out.Pix[i])
	}
}

func TestShadowUnderRejectsDegenerateLayer(t *testing.T) {
	_, err := NewShadowSynthesizer().ShadowUnder(image.NewNRGBA(image.Rect(0, 0, 10, 0)), ShadowParams{Blur: 5, Opacity: 90, Squash: 0.3})
	assert.ErrorIs(t, err, ErrDegenerateImage)
}
