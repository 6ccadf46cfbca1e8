package mjpeg

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Boundary multipart 边界标记，和 ContentType 里的 boundary 一致
const Boundary = "frame"

// ContentType /stream 响应的 Content-Type
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// DefaultQuality JPEG 编码质量
const DefaultQuality = 85

var (
	chunkHeader  = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
	chunkTrailer = []byte("\r\n")
)

// WrapChunk 把一帧 JPEG 字节包装成自定界的 multipart 分块：
// --frame\r\nContent-Type: image/jpeg\r\n\r\n<jpeg>\r\n
func WrapChunk(jpeg []byte) []byte {
	buf := make([]byte, 0, len(chunkHeader)+len(jpeg)+len(chunkTrailer))
	buf = append(buf, chunkHeader...)
	buf = append(buf, jpeg...)
	buf = append(buf, chunkTrailer...)
	return buf
}

// Encoder 把渲染后的帧编码成 MJPEG 流分块
type Encoder struct {
	quality int
}

func NewEncoder(quality int) *Encoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{quality: quality}
}

// Encode 编码一帧并包装成流分块，编码失败返回错误、不产生分块
func (e *Encoder) Encode(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, e.quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()
	// GetBytes 返回的是 C 侧内存的视图，必须在 Close 前拷走
	return WrapChunk(buf.GetBytes()), nil
}
