package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	iface "FireStreamServer/interface"
	"FireStreamServer/logger"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// New 创建会话配置并进入 REGISTERED 状态，需要 Initialize 之后调用
func (d *Detector) New() bool {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		logger.S().Errorw("create session options failed", "err", err)
		return false
	}
	if err := opts.SetIntraOpNumThreads(runtime.NumCPU()); err != nil {
		_ = opts.Destroy()
		return false
	}
	if err := opts.SetInterOpNumThreads(runtime.NumCPU()); err != nil {
		_ = opts.Destroy()
		return false
	}
	d.opts = opts
	d.state.Store(REGISTERED)
	return true
}

// LoadModel 加载 ONNX 模型并建立推理会话，成功后进入 IDLE。
// device 取 auto/cuda/cpu；auto 在 CUDA 不可用时退回 CPU，
// 显式 cuda 则直接报错。
func (d *Detector) LoadModel(modelPath string, device string) error {
	switch d.state.Load() {
	case UNREGISTERED:
		return errors.New("detector not registered")
	case IDLE, BUSY:
		return errors.New("model already loaded")
	}
	if !strings.EqualFold(filepath.Ext(modelPath), ".onnx") {
		return fmt.Errorf("unsupported model format %q, expected .onnx", filepath.Ext(modelPath))
	}
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model file: %w", err)
	}
	resolved, err := d.applyDevice(device)
	if err != nil {
		return err
	}

	d.anchors = anchorCount(d.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(d.InputSize), int64(d.InputSize)))
	if err != nil {
		return fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 5, int64(d.anchors)))
	if err != nil {
		_ = input.Destroy()
		return fmt.Errorf("create output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		d.opts,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return fmt.Errorf("create session: %w", err)
	}

	d.session = session
	d.input = input
	d.output = output
	d.ModelPath = modelPath
	d.device = resolved
	d.pre = NewPreprocessor(d.InputSize)
	d.state.Store(IDLE)
	return nil
}

// applyDevice 按配置挂接执行后端，返回实际生效的设备名
func (d *Detector) applyDevice(device string) (string, error) {
	switch device {
	case DeviceCPU, "":
		return DeviceCPU, nil
	case DeviceCUDA, DeviceAuto:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err == nil {
			err = d.opts.AppendExecutionProviderCUDA(cudaOpts)
			_ = cudaOpts.Destroy()
		}
		if err == nil {
			return DeviceCUDA, nil
		}
		if device == DeviceCUDA {
			return "", fmt.Errorf("cuda provider unavailable: %w", err)
		}
		logger.S().Warnw("CUDA unavailable, falling back to CPU", "err", err)
		return DeviceCPU, nil
	default:
		return "", fmt.Errorf("unknown device %q", device)
	}
}

// Detect 对一帧做推理，返回 NMS 之后的检测集合。
// 模型未加载或正在推理时返回错误，不排队。
func (d *Detector) Detect(img gocv.Mat) ([]iface.Detection, error) {
	if !d.state.CompareAndSwap(IDLE, BUSY) {
		switch d.state.Load() {
		case UNREGISTERED:
			return nil, errors.New("detector not registered")
		case REGISTERED:
			return nil, errors.New("model not loaded")
		default:
			return nil, errors.New("detector is busy")
		}
	}
	defer d.state.Store(IDLE)

	if err := d.pre.Into(img, d.input.GetData()); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	cands := decodePredictions(d.output.GetData(), d.anchors, d.InputSize, d.Conf)
	return nonMaxSuppression(cands, d.Iou), nil
}

// Destroy 释放会话和张量，回到 UNREGISTERED
func (d *Detector) Destroy() {
	if d.session != nil {
		_ = d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		_ = d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		_ = d.output.Destroy()
		d.output = nil
	}
	if d.opts != nil {
		_ = d.opts.Destroy()
		d.opts = nil
	}
	d.ModelPath = ""
	d.device = ""
	d.pre = nil
	d.state.Store(UNREGISTERED)
}
