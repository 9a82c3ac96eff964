package scraper

import (
	"time"

	"liuproxy_harvester/internal/shared/types"
)

// FromConfig 根据配置构建所有启用的抓取器。
func FromConfig(conf types.SourcesConf) []Scraper {
	timeout := time.Duration(conf.TimeoutSeconds) * time.Second
	scrapers := make([]Scraper, 0)

	for _, u := range conf.TextLists {
		scrapers = append(scrapers, NewTextListScraper(u, "", timeout, conf.ForwardProxy))
	}
	for _, u := range conf.SocksTextLists {
		scrapers = append(scrapers, NewTextListScraper(u, "socks5", timeout, conf.ForwardProxy))
	}
	for _, source := range conf.HTMLTables {
		scrapers = append(scrapers, NewHTMLTableScraper(source, timeout, conf.ForwardProxy))
	}
	for _, source := range conf.EmbeddedJSON {
		scrapers = append(scrapers, NewEmbeddedJSONScraper(source, timeout, conf.ForwardProxy))
	}
	for _, path := range conf.Files {
		scrapers = append(scrapers, NewFileScraper(path))
	}
	if len(conf.Static) > 0 {
		scrapers = append(scrapers, NewStaticScraper("static", conf.Static))
	}
	return scrapers
}
