package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"liuproxy_harvester/internal/service/web"
	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/internal/shared/request"
	"liuproxy_harvester/internal/shared/types"
	"liuproxy_harvester/proxypool"
	"liuproxy_harvester/proxypool/scraper"
	"liuproxy_harvester/proxypool/storage"
	"liuproxy_harvester/proxypool/validator"
)

// AppServer 把配置、流水线、sinks 与状态服务组装在一起。
type AppServer struct {
	cfg      *types.Config
	pipeline *proxypool.Pipeline
	hub      *web.Hub
	web      *web.Server

	waitGroup sync.WaitGroup
	stopOnce  sync.Once
}

// NewChecker builds the liveness checker described by conf.
func NewChecker(conf types.CheckerConf) *validator.Checker {
	client := request.New(request.WithRetry(conf.Retry))
	return validator.New(client, conf.Judges,
		validator.WithSecondCheck(conf.SecondCheckURL),
		validator.WithTimeouts(
			time.Duration(conf.JudgeTimeoutMillis)*time.Millisecond,
			time.Duration(conf.SecondCheckTimeoutMillis)*time.Millisecond,
		),
	)
}

// New creates an AppServer. seedFile 非空时从该文件预置可用代理,
// 为空时可用代理集合从空开始, 不读取上一次导出的文件。
func New(cfg *types.Config, seedFile string) (*AppServer, error) {
	scrapers := scraper.FromConfig(cfg.SourcesConf)
	checker := NewChecker(cfg.CheckerConf)
	p, err := proxypool.New(proxypool.SettingsFromConfig(cfg), scrapers, checker)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	p.AddSink(&proxypool.LogSink{})
	if cfg.SinkConf.ExportPath != "" {
		p.AddSink(proxypool.NewFileSink(storage.NewFileStorage(cfg.SinkConf.ExportPath)))
	}

	if seedFile != "" {
		seed, err := storage.NewFileStorage(seedFile).Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load seed proxies: %w", err)
		}
		p.SeedGoodProxies(seed)
		if len(seed) > 0 {
			logger.Info().Int("count", len(seed)).Str("path", seedFile).Msg("Seeded good proxies.")
		}
	}

	logger.Info().
		Int("sources", len(scrapers)).
		Strs("judges", checker.Judges()).
		Bool("second_check", cfg.CheckerConf.SecondCheckURL != "").
		Msg("Harvester configured.")

	hub := web.NewHub()
	p.AddObserver(hub)
	p.OnGeneration(hub.OnGeneration)

	return &AppServer{
		cfg:      cfg,
		pipeline: p,
		hub:      hub,
		web:      web.NewServer(cfg.WebConf, p, hub),
	}, nil
}

// Pipeline exposes the underlying pipeline.
func (s *AppServer) Pipeline() *proxypool.Pipeline {
	return s.pipeline
}

// Run 启动 Hub、状态服务和流水线, 阻塞到流水线停止。
func (s *AppServer) Run(ctx context.Context) error {
	logger.Info().Str("run_id", s.pipeline.RunID()).Msg("Starting proxy harvester...")

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()

	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		s.hub.Run(hubCtx)
	}()

	if err := s.web.Start(&s.waitGroup); err != nil {
		cancelHub()
		s.waitGroup.Wait()
		return err
	}

	runErr := s.pipeline.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.web.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Web server shutdown failed")
	}
	cancelHub()
	s.waitGroup.Wait()

	logger.Info().Int("good", len(s.pipeline.CurrentGoodProxies())).Msg("Proxy harvester stopped.")
	return runErr
}

// Stop requests shutdown. Safe to call more than once.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() {
		logger.Info().Msg("Stopping proxy harvester...")
		s.pipeline.RequestShutdown()
	})
}
