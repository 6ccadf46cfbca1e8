package pipeline

import (
	iface "FireStreamServer/interface"
)

// Config 单条流水线的运行参数，启动后不可变
type Config struct {
	// Window 时间平滑窗口大小（帧数），<=1 关闭平滑
	Window int
	// ConfThreshold 置信度下限（含等于）
	ConfThreshold float32
	// NMSThreshold 检测器内部 NMS 的 IoU 上限
	NMSThreshold float32
	// ImageSize 模型输入边长
	ImageSize int
}

// FilterByConf 保留置信度不低于阈值的检测（阈值本身保留）
func FilterByConf(dets []iface.Detection, threshold float32) []iface.Detection {
	out := make([]iface.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Conf >= threshold {
			out = append(out, d)
		}
	}
	return out
}

func maxConf(dets []iface.Detection) float32 {
	var m float32
	for _, d := range dets {
		if d.Conf > m {
			m = d.Conf
		}
	}
	return m
}
