package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"liuproxy_harvester/internal/shared/logger"
)

const defaultRowSelector = "table tbody tr"

// HTMLTableScraper 抓取以 HTML 表格展示的代理列表。
// 默认第一列为 IP, 第二列为端口; 任意单元格含 "socks5" 时视为 SOCKS5 代理。
type HTMLTableScraper struct {
	url      string
	selector string
	ipCol    int
	portCol  int
	client   *http.Client
}

// NewHTMLTableScraper 创建一个新的 HTMLTableScraper。
// source 的格式为 "url" 或 "url|css selector"。
func NewHTMLTableScraper(source string, timeout time.Duration, forwardProxy string) Scraper {
	pageURL, selector, _ := strings.Cut(source, "|")
	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = defaultRowSelector
	}
	return &HTMLTableScraper{
		url:      strings.TrimSpace(pageURL),
		selector: selector,
		ipCol:    0,
		portCol:  1,
		client:   newHTTPClient(timeout, forwardProxy),
	}
}

func (s *HTMLTableScraper) Name() string {
	return "html:" + s.url
}

func (s *HTMLTableScraper) Scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Msg("Starting scrape...")

	body, err := fetchPage(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", s.Name(), err)
	}

	var proxies []string
	doc.Find(s.selector).Each(func(_ int, row *goquery.Selection) {
		// Some sites put data cells in <th>.
		cells := row.Find("td, th")
		if cells.Length() <= s.portCol {
			return
		}

		protocol := ""
		cells.Each(func(_ int, cell *goquery.Selection) {
			if strings.Contains(strings.ToLower(cell.Text()), "socks5") {
				protocol = "socks5"
			}
		})

		ip := cells.Eq(s.ipCol).Text()
		port := cells.Eq(s.portCol).Text()
		candidate, err := formatCandidate(ip, port, protocol)
		if err != nil {
			l.Debug().Err(err).Str("source", s.Name()).Msg("Skipping row.")
			return
		}
		proxies = append(proxies, candidate)
	})

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
