package pipeline

import (
	iface "FireStreamServer/interface"
)

// Smoother 对逐帧检测结果做时间平滑，抑制单帧闪报。
// 窗口内每帧取最高置信度的检测作为该帧代表，再按各自置信度加权平均出
// 一个稳定框；命中帧入队、空帧出队，窗口随火情消失逐步冷却。
type Smoother struct {
	window int
	conf   float32
}

func NewSmoother(window int, confThreshold float32) *Smoother {
	return &Smoother{window: window, conf: confThreshold}
}

// Advance 把当前帧过滤后的检测集合并入历史，返回本帧应当显示的检测。
// 返回 nil 表示无火情；窗口 <=1 时不做平滑，原样返回输入。
func (s *Smoother) Advance(h *History, filtered []iface.Detection) []iface.Detection {
	if s.window <= 1 {
		return filtered
	}
	if len(filtered) > 0 {
		h.Push(filtered)
	} else {
		h.EvictOldest()
	}
	if h.Len() < 2 {
		// 历史不足两帧不做平均，命中帧原样显示
		if len(filtered) > 0 {
			return filtered
		}
		return nil
	}
	avg, ok := weightedAverage(representatives(h))
	if !ok || avg.Conf < s.conf {
		return nil
	}
	return []iface.Detection{avg}
}

// representatives 取历史中每帧置信度最高的检测
func representatives(h *History) []iface.Detection {
	reps := make([]iface.Detection, 0, h.Len())
	for i := 0; i < h.Len(); i++ {
		set := h.At(i)
		if len(set) == 0 {
			continue
		}
		reps = append(reps, bestOf(set))
	}
	return reps
}

func bestOf(dets []iface.Detection) iface.Detection {
	best := dets[0]
	for _, d := range dets[1:] {
		if d.Conf > best.Conf {
			best = d
		}
	}
	return best
}

// weightedAverage 按各代表自身置信度归一化加权，对四个坐标和置信度
// 分别求平均。权重无法归一化（置信度和为 0）时返回 false。
func weightedAverage(reps []iface.Detection) (iface.Detection, bool) {
	var sum float64
	for _, r := range reps {
		sum += float64(r.Conf)
	}
	if len(reps) == 0 || sum <= 0 {
		return iface.Detection{}, false
	}
	var x1, y1, x2, y2, c float64
	for _, r := range reps {
		w := float64(r.Conf) / sum
		x1 += w * float64(r.XMin)
		y1 += w * float64(r.YMin)
		x2 += w * float64(r.XMax)
		y2 += w * float64(r.YMax)
		c += w * float64(r.Conf)
	}
	return iface.Detection{
		XMin:  float32(x1),
		YMin:  float32(y1),
		XMax:  float32(x2),
		YMax:  float32(y2),
		Conf:  float32(c),
		Class: 0,
	}, true
}
