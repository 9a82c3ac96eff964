package scraper

import "context"

// StaticScraper 每次都返回同一份固定列表。
type StaticScraper struct {
	name    string
	proxies []string
}

// NewStaticScraper 创建一个新的 StaticScraper。
func NewStaticScraper(name string, proxies []string) Scraper {
	return &StaticScraper{name: name, proxies: append([]string(nil), proxies...)}
}

func (s *StaticScraper) Name() string {
	return s.name
}

func (s *StaticScraper) Scrape(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.proxies...), nil
}
