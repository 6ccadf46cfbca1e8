package main

import (
	"context"
	"net/http"
	"sync/atomic"

	"FireStreamServer/events"
	iface "FireStreamServer/interface"
	"FireStreamServer/logger"
	"FireStreamServer/mjpeg"
	"FireStreamServer/monitor"
	"FireStreamServer/overlay"
	"FireStreamServer/pipeline"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server 聚合帧源、检测器和事件 Hub，对外提供流和状态接口。
// 帧源是独占资源，streaming 租约保证同一时间只有一条消费循环。
type Server struct {
	cfg       configStruct
	cam       iface.FrameSource
	det       iface.Detector
	hub       *events.Hub
	rend      *overlay.Renderer
	enc       *mjpeg.Encoder
	streaming atomic.Bool
	upgrader  websocket.Upgrader
}

func NewServer(cfg configStruct, cam iface.FrameSource, det iface.Detector, hub *events.Hub) *Server {
	return &Server{
		cfg:  cfg,
		cam:  cam,
		det:  det,
		hub:  hub,
		rend: overlay.New(float32(cfg.ConfThreshold)),
		enc:  mjpeg.NewEncoder(cfg.JPEGQuality),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))
	r.GET("/", s.handleRoot)
	r.GET("/stream", s.handleStream)
	r.GET("/status", s.handleStatus)
	r.GET("/ws/events", s.handleEvents)
	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Wildfire Detection Server Running"})
}

func (s *Server) handleStatus(c *gin.Context) {
	var device any
	if s.det != nil && s.det.Ready() {
		device = s.det.Device()
	}
	c.JSON(http.StatusOK, gin.H{
		"camera_ready": s.cam != nil && s.cam.Ready(),
		"model_loaded": s.det != nil && s.det.Ready(),
		"device":       device,
	})
}

// handleStream 把检测流水线的输出按 multipart 分块推给客户端。
// 帧源只有一路，已被占用时返回 503 而不是排队。
func (s *Server) handleStream(c *gin.Context) {
	if !s.streaming.CompareAndSwap(false, true) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream already in use"})
		return
	}
	defer s.streaming.Store(false)
	monitor.StreamRequests.Inc()
	monitor.ActiveSessions.Inc()
	defer monitor.ActiveSessions.Dec()

	sess := pipeline.NewSession(s.cam, s.det, s.rend, s.enc, s.hub, s.cfg.pipelineConfig())
	logger.Log().Info("stream session started",
		zap.String("session", sess.ID()), zap.String("client", c.ClientIP()))

	c.Header("Content-Type", mjpeg.ContentType)
	c.Header("Cache-Control", "no-cache")
	ctx, cancel := context.WithCancel(c.Request.Context())
	chunks := sess.Stream(ctx)
	// 返回前先停掉流水线并排空通道，goroutine 退出后租约才释放
	defer func() {
		cancel()
		for range chunks {
		}
	}()
	for chunk := range chunks {
		if _, err := c.Writer.Write(chunk); err != nil {
			// 客户端断开，退出前由 defer 停掉流水线
			logger.Log().Info("stream consumer disconnected",
				zap.String("session", sess.ID()), zap.Error(err))
			return
		}
		c.Writer.Flush()
	}
}

// handleEvents 把检测事件推给 websocket 订阅者，只推不收
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 升级失败，不要再写 JSON
		return
	}
	defer conn.Close()

	ch, cancel := s.hub.Subscribe()
	defer cancel()

	// 读循环只为感知客户端断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
