package scraper

import "context"

// Scraper 定义了从一个代理源抓取候选代理的行为。
type Scraper interface {
	// Scrape 执行抓取操作, 返回候选代理字符串 ("host:port" 或带 scheme 的 URL)。
	// 实现者只负责抓取和初步解析, 不进行验证, 也不去重。
	Scrape(ctx context.Context) ([]string, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}
