package camera

import (
	"fmt"
	"io"
	"strconv"
	"time"

	iface "FireStreamServer/interface"

	"gocv.io/x/gocv"
)

// Webcam 本地采集设备或网络流（RTSP/HTTP URL）的帧源，底层是
// OpenCV VideoCapture。单 goroutine 读取，Read 失败即流结束。
type Webcam struct {
	cap    *gocv.VideoCapture
	source string
	seq    uint64
}

// OpenWebcam 打开帧源。source 是纯数字时按设备序号打开，否则按 URL。
// width/height 大于 0 时设置采集分辨率。
func OpenWebcam(source string, width, height int) (*Webcam, error) {
	var (
		cap *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(source); convErr == nil {
		cap, err = gocv.OpenVideoCapture(idx)
	} else {
		cap, err = gocv.OpenVideoCapture(source)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", source, err)
	}
	if !cap.IsOpened() {
		_ = cap.Close()
		return nil, fmt.Errorf("capture %q did not open", source)
	}
	if width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Webcam{cap: cap, source: source}, nil
}

// Read 抓取一帧。设备断开或采到空帧返回 io.EOF，没有重试。
func (w *Webcam) Read() (iface.Frame, error) {
	if w.cap == nil {
		return iface.Frame{}, io.EOF
	}
	mat := gocv.NewMat()
	if ok := w.cap.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		return iface.Frame{}, io.EOF
	}
	w.seq++
	return iface.Frame{Seq: w.seq, Time: time.Now(), Mat: mat}, nil
}

func (w *Webcam) Ready() bool {
	return w.cap != nil && w.cap.IsOpened()
}

// Close 释放采集设备，重复调用安全
func (w *Webcam) Close() error {
	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	return err
}
