package engine

import (
	"sort"

	iface "FireStreamServer/interface"
)

// anchorCount 单类 YOLO 头在方形输入下的预测格数：
// 1/8、1/16、1/32 三层网格各一格一条
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}
	return n
}

// decodePredictions 解析 [1,5,N] 平面布局的模型输出。
// 每列一条预测：行 0..3 是输入像素系的中心点和宽高，行 4 是置信度。
// 低于阈值的列跳过（阈值本身保留），坐标换算成归一化角点并裁剪到 [0,1]。
func decodePredictions(preds []float32, anchors int, inputSize int, confThreshold float32) []iface.Detection {
	size := float32(inputSize)
	var dets []iface.Detection
	for i := 0; i < anchors; i++ {
		conf := preds[4*anchors+i]
		if conf < confThreshold {
			continue
		}
		cx := preds[i]
		cy := preds[anchors+i]
		w := preds[2*anchors+i]
		h := preds[3*anchors+i]
		dets = append(dets, iface.Detection{
			XMin:  clamp01((cx - w/2) / size),
			YMin:  clamp01((cy - h/2) / size),
			XMax:  clamp01((cx + w/2) / size),
			YMax:  clamp01((cy + h/2) / size),
			Conf:  conf,
			Class: 0,
		})
	}
	return dets
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// iou 两个归一化框的交并比
func iou(a, b iface.Detection) float32 {
	ix1 := max32(a.XMin, b.XMin)
	iy1 := max32(a.YMin, b.YMin)
	ix2 := min32(a.XMax, b.XMax)
	iy2 := min32(a.YMax, b.YMax)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	areaA := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	areaB := (b.XMax - b.XMin) * (b.YMax - b.YMin)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nonMaxSuppression 贪心保留高置信度框，和已保留框重叠超过
// iouThreshold 的候选丢弃
func nonMaxSuppression(dets []iface.Detection, iouThreshold float32) []iface.Detection {
	if len(dets) <= 1 {
		return dets
	}
	sorted := make([]iface.Detection, len(dets))
	copy(sorted, dets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Conf > sorted[j].Conf })

	keep := sorted[:0]
	for _, d := range sorted {
		ok := true
		for _, k := range keep {
			if iou(d, k) > iouThreshold {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, d)
		}
	}
	return keep
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
