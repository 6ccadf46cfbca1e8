package camera

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	iface "FireStreamServer/interface"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// FileSource 把目录里的静态图片按文件名顺序回放成帧流，没有物理
// 摄像头时充当开发和联调用的帧源。loops 控制完整回放几轮后耗尽，
// 0 表示无限循环。
type FileSource struct {
	paths  []string
	width  int
	height int
	loops  int
	pos    int
	pass   int
	seq    uint64
	closed bool
}

func OpenFileSource(dir string, width, height, loops int) (*FileSource, error) {
	paths, err := listFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames in %s", dir)
	}
	return &FileSource{paths: paths, width: width, height: height, loops: loops}, nil
}

// listFrames 收集目录下的图片文件，按文件名排序保证回放顺序稳定
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Read 解码下一张图片。轮数用尽或 Close 之后返回 io.EOF，
// 单个文件损坏按帧源故障处理直接报错。
func (f *FileSource) Read() (iface.Frame, error) {
	if f.closed {
		return iface.Frame{}, io.EOF
	}
	if f.pos >= len(f.paths) {
		f.pos = 0
		f.pass++
		if f.loops > 0 && f.pass >= f.loops {
			return iface.Frame{}, io.EOF
		}
	}
	path := f.paths[f.pos]
	f.pos++

	img, err := imaging.Open(path)
	if err != nil {
		return iface.Frame{}, fmt.Errorf("read frame %s: %w", path, err)
	}
	if f.width > 0 && f.height > 0 {
		img = imaging.Resize(img, f.width, f.height, imaging.Linear)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return iface.Frame{}, fmt.Errorf("convert frame %s: %w", path, err)
	}
	f.seq++
	return iface.Frame{Seq: f.seq, Time: time.Now(), Mat: mat}, nil
}

func (f *FileSource) Ready() bool { return !f.closed }

func (f *FileSource) Close() error {
	f.closed = true
	return nil
}
