package model

import "time"

// Snapshot 是流水线计数器的只读快照，由 Reporter 定期输出，也通过 /api/status 序列化为 JSON。
type Snapshot struct {
	RunID          string    `json:"run_id"`
	Generation     uint64    `json:"generation"`      // 已完成的周期数
	UncheckedCount int       `json:"unchecked_count"` // 本周期抓取到的候选数量
	QueueDepth     int       `json:"queue_depth"`     // 工作队列中等待验证的数量
	CompletedCount int       `json:"completed_count"` // 本周期已完成的验证数量
	GoodCount      int       `json:"good_count"`      // 当前对外可见的可用代理数量
	TempGoodCount  int       `json:"temp_good_count"` // 本周期已验证通过的数量
	Fetched        bool      `json:"fetched"`         // 本周期是否已完成抓取
	Running        bool      `json:"running"`
	TakenAt        time.Time `json:"taken_at"`
}

// Generation 描述一次已经结束的周期。
type Generation struct {
	Number   uint64        `json:"number"`
	Checked  int           `json:"checked"`  // 本周期完成的验证数, 等于本周期的候选数量
	Passed   int           `json:"passed"`   // 本周期验证通过的数量
	Promoted bool          `json:"promoted"` // 是否替换了对外可见的可用代理集合
	Good     []string      `json:"good"`     // 周期结束后对外可见的可用代理
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}
