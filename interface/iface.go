package iface

import "gocv.io/x/gocv"

// FrameSource produces frames in capture order. Read blocks until a frame
// is available and returns a non-nil error once the source is exhausted or
// broken; after that the source is done and only Close may be called.
type FrameSource interface {
	Read() (Frame, error)
	Ready() bool
	Close() error
}

// Detector runs inference on a single frame and returns the surviving
// candidate boxes, already suppressed against its IoU threshold.
type Detector interface {
	Detect(image gocv.Mat) ([]Detection, error)
	Ready() bool
	Device() string
}

// Renderer draws detection results onto a frame in place.
type Renderer interface {
	Draw(image *gocv.Mat, dets []Detection, fire bool, frame uint64)
}

// StreamEncoder turns a rendered frame into one self-delimited chunk of
// the output stream.
type StreamEncoder interface {
	Encode(image gocv.Mat) ([]byte, error)
}

// EventSink receives per-frame detection events. Publish must not block
// the caller.
type EventSink interface {
	Publish(ev Event)
}
