package overlay

import (
	"fmt"
	"image"
	"image/color"

	iface "FireStreamServer/interface"

	"gocv.io/x/gocv"
)

const (
	boxThickness = 2
	labelScale   = 0.6
	statusScale  = 0.7
)

var (
	alertColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	okColor    = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Renderer 在帧上叠加检测框、标签和状态行，直接原地绘制。
// 对共享状态只读，同一帧不会被两个 goroutine 同时绘制。
type Renderer struct {
	conf float32
}

func New(confThreshold float32) *Renderer {
	return &Renderer{conf: confThreshold}
}

// Draw 依次绘制检测框（带置信度标签）、状态行和帧计数。
// dets 为空时只画状态行和计数；fire 决定状态行文字与颜色。
func (r *Renderer) Draw(img *gocv.Mat, dets []iface.Detection, fire bool, frame uint64) {
	width := img.Cols()
	height := img.Rows()

	for _, d := range dets {
		if d.Conf < r.conf {
			continue
		}
		rect := PixelRect(d, width, height)
		gocv.Rectangle(img, rect, alertColor, boxThickness)

		label := fmt.Sprintf("Wildfire: %.2f", d.Conf)
		size, baseline := gocv.GetTextSizeWithBaseline(label, gocv.FontHersheySimplex, labelScale, 1)
		// 标签底衬：实心矩形贴在框的左上角上方
		bg := image.Rect(rect.Min.X, rect.Min.Y-size.Y-baseline-5, rect.Min.X+size.X, rect.Min.Y)
		gocv.Rectangle(img, bg, alertColor, -1)
		gocv.PutTextWithParams(img, label,
			image.Pt(rect.Min.X, rect.Min.Y-baseline-2),
			gocv.FontHersheySimplex, labelScale, labelColor, 1, gocv.LineAA, false)
	}

	status := "No Fire"
	statusColor := okColor
	if fire {
		status = "FIRE DETECTED"
		statusColor = alertColor
	}
	gocv.PutText(img, status, image.Pt(10, 60), gocv.FontHersheySimplex, statusScale, statusColor, 2)
	gocv.PutText(img, fmt.Sprintf("Frame: %d", frame), image.Pt(10, 30), gocv.FontHersheySimplex, statusScale, okColor, 2)
}

// PixelRect 把归一化坐标换算成像素坐标并裁剪到帧边界内。
// 越界坐标（如 x_max = 1.2）裁到 [0, width-1] / [0, height-1]。
func PixelRect(d iface.Detection, width, height int) image.Rectangle {
	x1 := clamp(int(d.XMin*float32(width)), 0, width-1)
	y1 := clamp(int(d.YMin*float32(height)), 0, height-1)
	x2 := clamp(int(d.XMax*float32(width)), 0, width-1)
	y2 := clamp(int(d.YMax*float32(height)), 0, height-1)
	return image.Rect(x1, y1, x2, y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
