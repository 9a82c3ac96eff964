package proxypool

import (
	"context"
	"time"

	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/proxypool/storage"
)

// Sink 消费对外可见的可用代理集合。
// version 在集合每次被整体替换时加一, 集合未变化时保持不变。
type Sink interface {
	Name() string
	Consume(ctx context.Context, version uint64, proxies []string) error
}

// sinksFor 把 sinks 按下标轮流分给 M 个 worker。
func (p *Pipeline) sinksFor(worker int) []Sink {
	var out []Sink
	for i, s := range p.sinks {
		if i%p.settings.SinkWorkers == worker {
			out = append(out, s)
		}
	}
	return out
}

// sinkWorker 集合为空时等待 SinkIdle, 否则把当前集合交给分到的 sinks, 然后等待 SinkInterval。
func (p *Pipeline) sinkWorker(ctx context.Context, id int, sinks []Sink) {
	defer p.wg.Done()
	l := logger.WithComponent("ProxyPool/Sink").With().Int("worker", id).Logger()

	for {
		good, version := p.currentGood()
		if len(good) == 0 {
			if !sleepCtx(ctx, p.settings.SinkIdle) {
				return
			}
			continue
		}

		for _, s := range sinks {
			if err := s.Consume(ctx, version, good); err != nil {
				l.Warn().Err(err).Str("sink", s.Name()).Msg("Sink failed.")
			}
		}

		if !sleepCtx(ctx, p.settings.SinkInterval) {
			return
		}
	}
}

// LogSink 只把集合的大小和前几个代理写进日志。
type LogSink struct {
	Sample int
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Consume(_ context.Context, version uint64, proxies []string) error {
	n := s.Sample
	if n <= 0 {
		n = 5
	}
	if n > len(proxies) {
		n = len(proxies)
	}
	l := logger.WithComponent("ProxyPool/Sink")
	l.Info().
		Uint64("version", version).
		Int("count", len(proxies)).
		Strs("sample", proxies[:n]).
		Msg("Good proxies available.")
	return nil
}

// FileSink 把集合写入文件, 已经写过的 version 不再重复写。
type FileSink struct {
	store   *storage.FileStorage
	written uint64
	now     func() time.Time
}

func NewFileSink(store *storage.FileStorage) *FileSink {
	return &FileSink{store: store, now: time.Now}
}

func (s *FileSink) Name() string { return "file:" + s.store.Path() }

func (s *FileSink) Consume(_ context.Context, version uint64, proxies []string) error {
	if version != 0 && version == s.written {
		return nil
	}
	if err := s.store.Save(proxies, storage.Header(version, s.now())); err != nil {
		return err
	}
	s.written = version
	l := logger.WithComponent("ProxyPool/Sink")
	l.Info().
		Str("path", s.store.Path()).
		Uint64("version", version).
		Int("count", len(proxies)).
		Msg("Good proxies exported.")
	return nil
}
