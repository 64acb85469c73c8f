package http

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/miladpirayegar-hash/scholar/internal/config"
	"github.com/miladpirayegar-hash/scholar/internal/pipeline"
	"github.com/miladpirayegar-hash/scholar/internal/services"
	"github.com/miladpirayegar-hash/scholar/internal/storage"
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
}

func NewServer(cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	files, err := storage.NewFileManager(cfg.DataDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}

	store := storage.NewSessionStore()
	openaiSvc := services.NewOpenAIService(cfg)
	insightsSvc := services.NewInsightsGenerator(openaiSvc)
	outlineSvc := services.NewOutlineExtractor(openaiSvc, cfg.OutlineMaxChars)
	sheetSvc := services.NewSheetService()
	shareSvc := services.NewShareService(cfg)
	pipe := pipeline.New(store, files, openaiSvc, insightsSvc)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(MaxBodySize(cfg.MaxUploadBytes))
	engine.Use(CORS())

	api := NewAPI(cfg, files, store, pipe, outlineSvc, sheetSvc, shareSvc)
	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg}, nil
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	return s.engine.Run(addr)
}
