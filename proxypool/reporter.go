package proxypool

import (
	"context"
	"time"

	"liuproxy_harvester/internal/shared/logger"
)

// reporter 每隔 ReportInterval 输出一次快照, 并推送给所有 Observer。
func (p *Pipeline) reporter(ctx context.Context) {
	defer p.wg.Done()
	l := logger.WithComponent("ProxyPool/Reporter")

	ticker := time.NewTicker(p.settings.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap := p.Snapshot()
		l.Info().
			Uint64("generation", snap.Generation).
			Int("unchecked", snap.UncheckedCount).
			Int("queue", snap.QueueDepth).
			Int("completed", snap.CompletedCount).
			Int("good", snap.GoodCount).
			Int("temp_good", snap.TempGoodCount).
			Msg("Pipeline status")

		for _, o := range p.observers {
			o.OnSnapshot(snap)
		}
	}
}
