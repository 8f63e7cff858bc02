// Package service 是推荐引擎的 HTTP 接入层。
//
// 路由：
//   - GET  /api/recommend/:user_id?n=  按用户返回 Top-N 推荐
//   - POST /api/train                  立即全量重训
//   - GET  /healthz                    存活探针
//
// 响应统一为 {status, data|message} 信封，成功为 "success"，
// 失败为 "error" 加 message。
package service

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/engine"
)

// Server 持有引擎与路由。
type Server struct {
	engine   *engine.Engine
	router   *gin.Engine
	defaultN int
	log      zerolog.Logger
}

// Options 是接入层配置。
type Options struct {
	// DefaultN 为未带 n 参数时的返回条数；<=0 用 engine.DefaultN
	DefaultN int
	Logger   zerolog.Logger
}

// New 创建 HTTP 服务并注册路由。
func New(e *engine.Engine, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   e,
		router:   gin.New(),
		defaultN: opts.DefaultN,
		log:      opts.Logger,
	}
	if s.defaultN <= 0 {
		s.defaultN = engine.DefaultN
	}

	s.router.Use(gin.Recovery())

	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api")
	api.GET("/recommend/:user_id", s.handleRecommend)
	api.POST("/train", s.handleTrain)

	return s
}

// Handler 暴露底层 http.Handler，便于测试与外部挂载。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动监听，阻塞直到出错。
func (s *Server) Run(addr string) error {
	s.log.Info().Str("addr", addr).Msg("http: listening")
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleRecommend(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "user_id is required"})
		return
	}

	n := s.defaultN
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "n must be a non-negative integer"})
			return
		}
		n = parsed
	}

	recs, err := s.engine.Recommend(c.Request.Context(), userID, n)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("http: recommend failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "recommendation unavailable"})
		return
	}
	if recs == nil {
		recs = []core.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": recs})
}

func (s *Server) handleTrain(c *gin.Context) {
	if err := s.engine.Train(c.Request.Context()); err != nil {
		s.log.Error().Err(err).Msg("http: train failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "training failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "model re-trained"})
}
