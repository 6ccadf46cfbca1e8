package engine

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Initialize 初始化 onnxruntime 环境，进程内只调用一次。
// libPath 为空时使用系统默认的动态库查找路径。
func Initialize(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnxruntime init: %w", err)
	}
	return nil
}

// Shutdown 销毁 onnxruntime 环境，所有 Detector Destroy 之后调用
func Shutdown() {
	if ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}
