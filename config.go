package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"FireStreamServer/pipeline"

	"gopkg.in/yaml.v3"
)

type mqttConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"pass"`
	Topic string `yaml:"topic"`
}

type configStruct struct {
	ModelPath        string     `yaml:"modelPath"`
	OrtLibPath       string     `yaml:"ortLibPath"`
	ImageSize        int        `yaml:"imageSize"`
	ConfThreshold    float64    `yaml:"confThreshold"`
	SmoothFrames     int        `yaml:"smoothFrames"`
	NMSThreshold     float64    `yaml:"nmsThreshold"`
	Camera           string     `yaml:"camera"`
	SourceDir        string     `yaml:"sourceDir"`
	Device           string     `yaml:"device"`
	Host             string     `yaml:"host"`
	Port             int        `yaml:"port"`
	MonitorPort      int        `yaml:"monitorPort"`
	JPEGQuality      int        `yaml:"jpegQuality"`
	CaptureWidth     int        `yaml:"captureWidth"`
	CaptureHeight    int        `yaml:"captureHeight"`
	CORSOrigins      []string   `yaml:"corsOrigins"`
	WebhookURL       string     `yaml:"webhookURL"`
	AlertCooldownSec int        `yaml:"alertCooldownSec"`
	MQTT             mqttConfig `yaml:"mqtt"`
}

func defaultConfig() configStruct {
	return configStruct{
		ModelPath:        "wildfire_detector_best.onnx",
		ImageSize:        416,
		ConfThreshold:    0.4,
		SmoothFrames:     10,
		NMSThreshold:     0.4,
		Camera:           "0",
		Device:           "auto",
		Host:             "127.0.0.1",
		Port:             8000,
		MonitorPort:      8001,
		JPEGQuality:      85,
		CaptureWidth:     640,
		CaptureHeight:    480,
		CORSOrigins:      []string{"http://localhost:3000", "http://localhost:3001"},
		AlertCooldownSec: 60,
	}
}

// loadConfig 三层配置：默认值 < yaml 文件 < 命令行参数。
// 先把参数解析到默认值副本上，再用显式给出的参数覆盖 yaml 的结果。
func loadConfig(args []string) (configStruct, error) {
	flagged := defaultConfig()
	fs := flag.NewFlagSet("firestream", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	fs.StringVar(&flagged.ModelPath, "model", flagged.ModelPath, "path to the ONNX detector checkpoint")
	fs.StringVar(&flagged.OrtLibPath, "ort-lib", flagged.OrtLibPath, "path to the onnxruntime shared library")
	fs.IntVar(&flagged.ImageSize, "image-size", flagged.ImageSize, "model input size")
	fs.Float64Var(&flagged.ConfThreshold, "conf-threshold", flagged.ConfThreshold, "confidence threshold for detections")
	fs.IntVar(&flagged.SmoothFrames, "smooth-frames", flagged.SmoothFrames, "number of frames for temporal smoothing")
	fs.Float64Var(&flagged.NMSThreshold, "nms-threshold", flagged.NMSThreshold, "NMS IoU threshold")
	fs.StringVar(&flagged.Camera, "camera", flagged.Camera, "camera index or stream URL")
	fs.StringVar(&flagged.SourceDir, "source-dir", flagged.SourceDir, "replay frames from this directory instead of a camera")
	fs.StringVar(&flagged.Device, "device", flagged.Device, "device (cuda/cpu/auto)")
	fs.StringVar(&flagged.Host, "host", flagged.Host, "server host")
	fs.IntVar(&flagged.Port, "port", flagged.Port, "server port")
	fs.IntVar(&flagged.MonitorPort, "monitor-port", flagged.MonitorPort, "prometheus metrics port")
	fs.IntVar(&flagged.JPEGQuality, "jpeg-quality", flagged.JPEGQuality, "stream JPEG quality")
	fs.StringVar(&flagged.WebhookURL, "webhook-url", flagged.WebhookURL, "POST fire alerts to this URL")
	fs.IntVar(&flagged.AlertCooldownSec, "alert-cooldown-sec", flagged.AlertCooldownSec, "minimum seconds between fire alerts")
	if err := fs.Parse(args); err != nil {
		return configStruct{}, err
	}

	cfg := flagged
	if *configPath != "" {
		fileCfg := defaultConfig()
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return configStruct{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return configStruct{}, fmt.Errorf("parse config file: %w", err)
		}
		cfg = fileCfg
		// 命令行显式给出的参数压过 yaml
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "model":
				cfg.ModelPath = flagged.ModelPath
			case "ort-lib":
				cfg.OrtLibPath = flagged.OrtLibPath
			case "image-size":
				cfg.ImageSize = flagged.ImageSize
			case "conf-threshold":
				cfg.ConfThreshold = flagged.ConfThreshold
			case "smooth-frames":
				cfg.SmoothFrames = flagged.SmoothFrames
			case "nms-threshold":
				cfg.NMSThreshold = flagged.NMSThreshold
			case "camera":
				cfg.Camera = flagged.Camera
			case "source-dir":
				cfg.SourceDir = flagged.SourceDir
			case "device":
				cfg.Device = flagged.Device
			case "host":
				cfg.Host = flagged.Host
			case "port":
				cfg.Port = flagged.Port
			case "monitor-port":
				cfg.MonitorPort = flagged.MonitorPort
			case "jpeg-quality":
				cfg.JPEGQuality = flagged.JPEGQuality
			case "webhook-url":
				cfg.WebhookURL = flagged.WebhookURL
			case "alert-cooldown-sec":
				cfg.AlertCooldownSec = flagged.AlertCooldownSec
			}
		})
	}
	if err := cfg.validate(); err != nil {
		return configStruct{}, err
	}
	return cfg, nil
}

// validate 配置错误属于启动失败，直接拒绝不带病运行
func (c configStruct) validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.ImageSize <= 0 || c.ImageSize%32 != 0 {
		return fmt.Errorf("image size %d must be a positive multiple of 32", c.ImageSize)
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("conf threshold %v out of range [0,1]", c.ConfThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold %v out of range [0,1]", c.NMSThreshold)
	}
	if c.SmoothFrames < 0 {
		return fmt.Errorf("smooth frames %d must be >= 0", c.SmoothFrames)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MonitorPort <= 0 || c.MonitorPort > 65535 || c.MonitorPort == c.Port {
		return fmt.Errorf("monitor port %d invalid", c.MonitorPort)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality %d out of range [1,100]", c.JPEGQuality)
	}
	switch strings.ToLower(c.Device) {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("unknown device %q", c.Device)
	}
	return nil
}

func (c configStruct) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Window:        c.SmoothFrames,
		ConfThreshold: float32(c.ConfThreshold),
		NMSThreshold:  float32(c.NMSThreshold),
		ImageSize:     c.ImageSize,
	}
}

func (c configStruct) alertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSec) * time.Second
}
