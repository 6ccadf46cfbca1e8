package overlay

import (
	"image"
	"testing"

	iface "FireStreamServer/interface"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestPixelRect(t *testing.T) {
	t.Run("Test inside bounds", func(t *testing.T) {
		d := iface.Detection{XMin: 0.25, YMin: 0.25, XMax: 0.5, YMax: 0.75}
		got := PixelRect(d, 640, 480)
		assert.Equal(t, image.Rect(160, 120, 320, 360), got)
	})

	t.Run("Test clamps overshoot", func(t *testing.T) {
		// 平均后的框可能越界，像素坐标不能超过 width-1/height-1
		d := iface.Detection{XMin: -0.1, YMin: -0.2, XMax: 1.2, YMax: 1.5}
		got := PixelRect(d, 640, 480)
		assert.Equal(t, 0, got.Min.X)
		assert.Equal(t, 0, got.Min.Y)
		assert.Equal(t, 639, got.Max.X)
		assert.Equal(t, 479, got.Max.Y)
	})

	t.Run("Test exact edge", func(t *testing.T) {
		d := iface.Detection{XMin: 0, YMin: 0, XMax: 1.0, YMax: 1.0}
		got := PixelRect(d, 640, 480)
		assert.Equal(t, image.Rect(0, 0, 639, 479), got)
	})
}

func TestRenderer_Draw(t *testing.T) {
	r := New(0.4)
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets := []iface.Detection{{XMin: 0.2, YMin: 0.2, XMax: 0.6, YMax: 0.6, Conf: 0.85}}
	r.Draw(&img, dets, true, 1)

	// 黑底上画过框和文字后必然出现非零像素
	assert.True(t, anyNonZero(img))
}

func TestRenderer_DrawSkipsBelowThreshold(t *testing.T) {
	r := New(0.9)
	withBox := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer withBox.Close()
	noBox := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer noBox.Close()

	dets := []iface.Detection{{XMin: 0.2, YMin: 0.2, XMax: 0.6, YMax: 0.6, Conf: 0.5}}
	r.Draw(&withBox, dets, false, 1)
	r.Draw(&noBox, nil, false, 1)

	// 低于阈值的框不画，两张图只剩相同的状态行
	a := withBox.ToBytes()
	b := noBox.ToBytes()
	assert.Equal(t, b, a)
}

func anyNonZero(m gocv.Mat) bool {
	for _, b := range m.ToBytes() {
		if b != 0 {
			return true
		}
	}
	return false
}
