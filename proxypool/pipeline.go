package proxypool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/internal/shared/types"
	"liuproxy_harvester/proxypool/model"
	"liuproxy_harvester/proxypool/scraper"
)

var (
	ErrNoSources      = errors.New("proxypool: no candidate sources registered")
	ErrNoChecker      = errors.New("proxypool: no liveness checker")
	ErrAlreadyRunning = errors.New("proxypool: pipeline already started")
)

// Checker 回答"这个代理能不能用"。实现者必须自行吸收错误并返回 false。
type Checker interface {
	Check(ctx context.Context, candidate string) bool
}

// Observer 接收 Reporter 定期产生的快照。
type Observer interface {
	OnSnapshot(snap model.Snapshot)
}

// Settings 是流水线的调度参数。
type Settings struct {
	CheckerWorkers  int
	SinkWorkers     int
	QueueSize       int
	WatcherPoll     time.Duration
	RefetchInterval time.Duration // 两次周期开始之间的最小间隔
	ReportInterval  time.Duration // 0 表示不启动 Reporter
	SinkInterval    time.Duration
	SinkIdle        time.Duration // 可用集合为空时 sink worker 的等待时间
}

// SettingsFromConfig 把 ini 配置转换为 Settings。
func SettingsFromConfig(cfg *types.Config) Settings {
	return Settings{
		CheckerWorkers:  cfg.PipelineConf.CheckerWorkers,
		SinkWorkers:     cfg.SinkConf.Workers,
		QueueSize:       cfg.PipelineConf.QueueSize,
		WatcherPoll:     time.Duration(cfg.PipelineConf.WatcherPollMillis) * time.Millisecond,
		RefetchInterval: time.Duration(cfg.PipelineConf.RefetchIntervalSeconds) * time.Second,
		ReportInterval:  time.Duration(cfg.PipelineConf.ReportIntervalSeconds) * time.Second,
		SinkInterval:    time.Duration(cfg.SinkConf.IntervalSeconds) * time.Second,
		SinkIdle:        time.Duration(cfg.SinkConf.IdleMillis) * time.Millisecond,
	}
}

func (s Settings) withDefaults() Settings {
	if s.CheckerWorkers <= 0 {
		s.CheckerWorkers = 1
	}
	if s.SinkWorkers <= 0 {
		s.SinkWorkers = 1
	}
	if s.QueueSize <= 0 {
		s.QueueSize = 1024
	}
	if s.WatcherPoll <= 0 {
		s.WatcherPoll = time.Second
	}
	if s.RefetchInterval < 0 {
		s.RefetchInterval = 0
	}
	if s.SinkInterval <= 0 {
		s.SinkInterval = 30 * time.Second
	}
	if s.SinkIdle <= 0 {
		s.SinkIdle = time.Second
	}
	return s
}

// Pipeline 是周期流水线: 抓取 -> 入队 -> 验证 -> 结算 -> 重置。
// 它独占下面 mu 保护的所有集合与计数器, 其它组件只能拿到快照。
type Pipeline struct {
	settings Settings
	scrapers []scraper.Scraper
	checker  Checker
	runID    string

	sinks           []Sink
	observers       []Observer
	generationHooks []func(model.Generation)

	// mu 保护以下所有字段
	mu          sync.Mutex
	unchecked   []string // 本周期的候选批次, 只由 watcher 清空
	drained     int      // unchecked 中已经送入队列的前缀长度
	completed   int      // 本周期已完成的验证数
	tempGood    []string // 本周期验证通过的代理
	good        []string // 对外可见的可用代理, 只由 watcher 整体替换
	goodVersion uint64   // good 每被替换一次加一
	fetched     bool     // 本周期是否已完成抓取, 未抓取时屏障不能触发
	generation  uint64
	genStarted  time.Time

	queue chan string

	fetchReady *Signal
	queueReady *Signal
	settleWake chan struct{}

	running  atomic.Bool
	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New 创建一个流水线。Running 标志在构造时置位。
func New(settings Settings, scrapers []scraper.Scraper, checker Checker) (*Pipeline, error) {
	if len(scrapers) == 0 {
		return nil, ErrNoSources
	}
	if checker == nil {
		return nil, ErrNoChecker
	}
	settings = settings.withDefaults()

	p := &Pipeline{
		settings:   settings,
		scrapers:   append([]scraper.Scraper(nil), scrapers...),
		checker:    checker,
		runID:      uuid.NewString(),
		queue:      make(chan string, settings.QueueSize),
		fetchReady: NewSignal(),
		queueReady: NewSignal(),
		settleWake: make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	p.running.Store(true)
	return p, nil
}

// AddSink registers a downstream consumer. Must be called before Run.
func (p *Pipeline) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// AddObserver registers a snapshot observer. Must be called before Run.
func (p *Pipeline) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// OnGeneration registers fn to be called by the watcher after every reset.
// Must be called before Run; fn must not block.
func (p *Pipeline) OnGeneration(fn func(model.Generation)) {
	p.generationHooks = append(p.generationHooks, fn)
}

// RunID identifies this pipeline instance in logs and snapshots.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Running reports whether shutdown has not been requested yet.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// SeedGoodProxies 在启动前预置对外可见的可用代理集合, 例如来自上一次导出的文件。
// 空列表不会改变集合。
func (p *Pipeline) SeedGoodProxies(proxies []string) {
	if len(proxies) == 0 {
		return
	}
	p.mu.Lock()
	p.good = append([]string(nil), proxies...)
	p.goodVersion++
	p.mu.Unlock()
}

// Run 启动所有阶段并阻塞, 直到 RequestShutdown 被调用或 ctx 结束, 然后等待所有阶段退出。
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	l := logger.WithComponent("ProxyPool/Pipeline")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if !p.running.Load() {
		l.Info().Msg("Shutdown requested before start.")
		return nil
	}

	l.Info().
		Str("run_id", p.runID).
		Int("sources", len(p.scrapers)).
		Int("checker_workers", p.settings.CheckerWorkers).
		Int("sink_workers", p.settings.SinkWorkers).
		Int("sinks", len(p.sinks)).
		Msg("Pipeline starting...")

	p.wg.Add(3)
	go p.fetchStage(ctx)
	go p.queueStage(ctx)
	go p.watcher(ctx)

	for i := 0; i < p.settings.CheckerWorkers; i++ {
		p.wg.Add(1)
		go p.checkerWorker(ctx)
	}

	for i := 0; i < p.settings.SinkWorkers; i++ {
		p.wg.Add(1)
		go p.sinkWorker(ctx, i, p.sinksFor(i))
	}

	if p.settings.ReportInterval > 0 {
		p.wg.Add(1)
		go p.reporter(ctx)
	}

	// Arm the first generation.
	p.fetchReady.Notify()

	<-ctx.Done()
	p.running.Store(false)
	p.wg.Wait()

	l.Info().Str("run_id", p.runID).Msg("Pipeline stopped.")
	return nil
}

// RequestShutdown 清除 Running 标志并取消所有阶段共享的 context。
// 所有阻塞点都监听该 context, 因此各阶段会尽快退出。可重复调用。
func (p *Pipeline) RequestShutdown() {
	p.running.Store(false)
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// CurrentGoodProxies 返回对外可见的可用代理集合的副本。
func (p *Pipeline) CurrentGoodProxies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.good...)
}

// currentGood returns the good set together with its version.
func (p *Pipeline) currentGood() ([]string, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.good...), p.goodVersion
}

// Snapshot 返回所有计数器的只读快照。只在复制数值期间持有锁。
func (p *Pipeline) Snapshot() model.Snapshot {
	p.mu.Lock()
	snap := model.Snapshot{
		RunID:          p.runID,
		Generation:     p.generation,
		UncheckedCount: len(p.unchecked),
		CompletedCount: p.completed,
		GoodCount:      len(p.good),
		TempGoodCount:  len(p.tempGood),
		Fetched:        p.fetched,
	}
	p.mu.Unlock()

	snap.QueueDepth = len(p.queue)
	snap.Running = p.running.Load()
	snap.TakenAt = time.Now()
	return snap
}

// sleepCtx sleeps for d unless ctx ends first. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
