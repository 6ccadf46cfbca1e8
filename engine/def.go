package engine

import (
	"sync/atomic"

	ort "github.com/yalue/onnxruntime_go"
)

// Detector 生命周期状态
const UNREGISTERED = 0x0001
const REGISTERED = 0x0002
const IDLE = 0x0003
const BUSY = 0x0004

// 推理设备
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// 模型的输入输出名，Ultralytics 导出的 ONNX 固定如此
const (
	inputName  = "images"
	outputName = "output0"
)

type Config struct {
	ModelPath string
	Conf      float32
	Iou       float32
	InputSize int
	Device    string
}

// Detector 包装一个 onnxruntime 会话的单类检测器。
// 状态机：UNREGISTERED -> New -> REGISTERED -> LoadModel -> IDLE <-> BUSY。
// 输入输出张量随会话复用，Detect 不可重入；状态用原子量保存，
// /status 从别的 goroutine 读 Ready 是安全的。
type Detector struct {
	ModelPath string
	Conf      float32
	Iou       float32
	InputSize int

	state   atomic.Int32
	device  string
	opts    *ort.SessionOptions
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	anchors int
	pre     *Preprocessor
}

func NewDetector(conf, iou float32, inputSize int) *Detector {
	d := &Detector{Conf: conf, Iou: iou, InputSize: inputSize}
	d.state.Store(UNREGISTERED)
	return d
}

func (d *Detector) CheckConfig() Config {
	return Config{
		ModelPath: d.ModelPath,
		Conf:      d.Conf,
		Iou:       d.Iou,
		InputSize: d.InputSize,
		Device:    d.device,
	}
}

// Ready 模型加载完成即为就绪，推理中也算
func (d *Detector) Ready() bool {
	s := d.state.Load()
	return s == IDLE || s == BUSY
}

func (d *Detector) Device() string { return d.device }

func (d *Detector) State() int { return int(d.state.Load()) }
