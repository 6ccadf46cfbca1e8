package iface

import (
	"time"

	"gocv.io/x/gocv"
)

// Detection is a single candidate bounding box. Coordinates are corner
// points normalized to [0, 1] relative to the frame they were detected on,
// so the same value set renders correctly at any display resolution.
type Detection struct {
	XMin  float32 `json:"x_min"`
	YMin  float32 `json:"y_min"`
	XMax  float32 `json:"x_max"`
	YMax  float32 `json:"y_max"`
	Conf  float32 `json:"confidence"`
	Class int     `json:"class"`
}

// Frame is one captured image plus its capture metadata. The Mat is owned
// by the receiver once Read returns it and must be closed by whoever
// consumes the frame.
type Frame struct {
	Seq  uint64
	Time time.Time
	Mat  gocv.Mat
}

// Event describes the detection outcome of one processed frame. Events are
// fanned out to websocket subscribers and to the alert sinks.
type Event struct {
	Session string      `json:"session"`
	Frame   uint64      `json:"frame"`
	Fire    bool        `json:"fire"`
	Conf    float32     `json:"confidence"`
	Boxes   []Detection `json:"boxes,omitempty"`
	Time    time.Time   `json:"time"`
}
