package engine

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ImageNet 归一化参数，与训练侧一致
var (
	meanRGB = [3]float32{0.485, 0.456, 0.406}
	stdRGB  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocessor 把采集帧转换成模型输入张量：BGR 转 RGB、缩放到
// 输入边长、像素除 255 后按通道减均值除方差、重排成 CHW。
type Preprocessor struct {
	size int
}

func NewPreprocessor(size int) *Preprocessor {
	return &Preprocessor{size: size}
}

// Into 就地填充 dst，len(dst) 必须等于 3*size*size
func (p *Preprocessor) Into(img gocv.Mat, dst []float32) error {
	if img.Empty() {
		return errors.New("empty frame")
	}
	if len(dst) != 3*p.size*p.size {
		return fmt.Errorf("input buffer size %d, want %d", len(dst), 3*p.size*p.size)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Pt(p.size, p.size), 0, 0, gocv.InterpolationLinear)

	f32 := gocv.NewMat()
	defer f32.Close()
	resized.ConvertToWithParams(&f32, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	pixels, err := f32.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("tensor view: %w", err)
	}
	chwNormalize(pixels, p.size, dst)
	return nil
}

// chwNormalize 把交错的 RGB 像素重排成 CHW 平面并做均值方差归一化
func chwNormalize(pixels []float32, size int, dst []float32) {
	plane := size * size
	for i := 0; i < plane; i++ {
		px := i * 3
		dst[i] = (pixels[px] - meanRGB[0]) / stdRGB[0]
		dst[plane+i] = (pixels[px+1] - meanRGB[1]) / stdRGB[1]
		dst[2*plane+i] = (pixels[px+2] - meanRGB[2]) / stdRGB[2]
	}
}
