package proxypool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/proxypool/model"
	"liuproxy_harvester/proxypool/scraper"
)

// fetchStage 等待 fetchReady, 并发调用所有候选源, 把合并后的结果追加到本周期批次。
func (p *Pipeline) fetchStage(ctx context.Context) {
	defer p.wg.Done()
	l := logger.WithComponent("ProxyPool/Fetch")

	var seen uint64
	var lastStart time.Time
	for {
		seq, err := p.fetchReady.Wait(ctx, seen)
		if err != nil {
			return
		}
		seen = seq

		if !lastStart.IsZero() {
			if wait := p.settings.RefetchInterval - time.Since(lastStart); wait > 0 {
				if !sleepCtx(ctx, wait) {
					return
				}
			}
		}
		lastStart = time.Now()

		candidates := p.fetchAll(ctx)
		if ctx.Err() != nil {
			return
		}

		p.mu.Lock()
		p.unchecked = append(p.unchecked, candidates...)
		p.fetched = true
		p.genStarted = lastStart
		batch := len(p.unchecked)
		p.mu.Unlock()

		l.Info().
			Int("count", len(candidates)).
			Int("batch", batch).
			Dur("elapsed", time.Since(lastStart)).
			Msg("Fetch pass finished.")

		p.queueReady.Notify()
		// 抓取结果为空时屏障立即成立
		p.wakeWatcher()
	}
}

// fetchAll 并发调用所有候选源。单个源失败只影响它自己的结果。
func (p *Pipeline) fetchAll(ctx context.Context) []string {
	results := make([][]string, len(p.scrapers))

	var g errgroup.Group
	for i, s := range p.scrapers {
		g.Go(func() error {
			results[i] = p.scrapeOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]string, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

func (p *Pipeline) scrapeOne(ctx context.Context, s scraper.Scraper) (proxies []string) {
	l := logger.WithComponent("ProxyPool/Fetch")
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			l.Error().Str("source", s.Name()).Interface("panic", r).Msg("Source panicked, treated as empty.")
			proxies = nil
		}
	}()

	proxies, err := s.Scrape(ctx)
	if err != nil {
		l.Warn().Err(err).Str("source", s.Name()).Msg("Source failed, treated as empty.")
		return nil
	}
	l.Debug().
		Str("source", s.Name()).
		Int("count", len(proxies)).
		Dur("elapsed", time.Since(start)).
		Msg("Source finished.")
	return proxies
}

// queueStage 把批次中尚未入队的候选按顺序送入工作队列, 不去重, 也不清空批次。
func (p *Pipeline) queueStage(ctx context.Context) {
	defer p.wg.Done()

	var seen uint64
	for {
		seq, err := p.queueReady.Wait(ctx, seen)
		if err != nil {
			return
		}
		seen = seq

		for {
			p.mu.Lock()
			if p.drained >= len(p.unchecked) {
				p.mu.Unlock()
				break
			}
			candidate := p.unchecked[p.drained]
			p.drained++
			p.mu.Unlock()

			select {
			case p.queue <- candidate:
			case <-ctx.Done():
				return
			}
		}
	}
}

// checkerWorker 从队列取出候选并验证。无论结果如何, completed 都加一。
func (p *Pipeline) checkerWorker(ctx context.Context) {
	defer p.wg.Done()

	for {
		var candidate string
		select {
		case <-ctx.Done():
			return
		case candidate = <-p.queue:
		}

		alive := p.probe(ctx, candidate)

		p.mu.Lock()
		if alive {
			p.tempGood = append(p.tempGood, candidate)
		}
		p.completed++
		last := p.fetched && p.completed == len(p.unchecked)
		p.mu.Unlock()

		if last {
			p.wakeWatcher()
		}
	}
}

// probe 调用 Checker, panic 视为验证失败。
func (p *Pipeline) probe(ctx context.Context, candidate string) (alive bool) {
	defer func() {
		if r := recover(); r != nil {
			l := logger.WithComponent("ProxyPool/Checker")
			l.Error().
				Str("proxy", candidate).
				Interface("panic", r).
				Msg("Probe panicked, verdict false.")
			alive = false
		}
	}()
	return p.checker.Check(ctx, candidate)
}

func (p *Pipeline) wakeWatcher() {
	select {
	case p.settleWake <- struct{}{}:
	default:
	}
}

// watcher 定时轮询屏障条件, 最后一个验证完成时也会被直接唤醒。
func (p *Pipeline) watcher(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.settings.WatcherPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.settleWake:
		}
		p.settle()
	}
}

// settle 在屏障成立时结束当前周期并返回 true:
// 重置计数器与批次, 临时集合非空时整体替换可用集合, 然后通知抓取阶段开始下一周期。
// 还没有完成过抓取的周期不会结算, 即使批次和计数器都是 0。
func (p *Pipeline) settle() bool {
	p.mu.Lock()
	if !p.fetched || p.completed != len(p.unchecked) {
		p.mu.Unlock()
		return false
	}

	gen := model.Generation{
		Checked: p.completed,
		Passed:  len(p.tempGood),
		Started: p.genStarted,
	}
	if len(p.tempGood) > 0 {
		p.good = p.tempGood
		p.goodVersion++
		gen.Promoted = true
	}
	p.tempGood = nil
	p.unchecked = nil
	p.drained = 0
	p.completed = 0
	p.fetched = false
	p.generation++

	gen.Number = p.generation
	gen.Good = append([]string(nil), p.good...)
	if !gen.Started.IsZero() {
		gen.Duration = time.Since(gen.Started)
	}
	p.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Watcher")
	l.Info().
		Uint64("generation", gen.Number).
		Int("checked", gen.Checked).
		Int("passed", gen.Passed).
		Bool("promoted", gen.Promoted).
		Int("good", len(gen.Good)).
		Str("duration", fmt.Sprintf("%.1fs", gen.Duration.Seconds())).
		Msg("Generation settled.")

	for _, fn := range p.generationHooks {
		fn(gen)
	}

	p.fetchReady.Notify()
	return true
}
