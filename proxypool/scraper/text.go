package scraper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liuproxy_harvester/internal/shared/logger"
)

// TextListScraper 抓取纯文本格式的代理列表, 每行一个 "host:port", '#' 开头为注释。
type TextListScraper struct {
	name   string
	url    string
	scheme string
	client *http.Client
}

// NewTextListScraper 创建一个新的 TextListScraper。scheme 为 "socks5" 时每个候选带上 socks5:// 前缀。
func NewTextListScraper(listURL, scheme string, timeout time.Duration, forwardProxy string) Scraper {
	return &TextListScraper{
		name:   "text:" + listURL,
		url:    listURL,
		scheme: scheme,
		client: newHTTPClient(timeout, forwardProxy),
	}
}

func (s *TextListScraper) Name() string {
	return s.name
}

func (s *TextListScraper) Scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Msg("Starting scrape...")

	body, err := fetchPage(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	proxies, err := parseLines(body, s.scheme)
	if err != nil {
		return nil, fmt.Errorf("failed to read list from %s: %w", s.Name(), err)
	}

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}

// parseLines 逐行读取候选代理, 跳过空行和注释。
func parseLines(r io.Reader, scheme string) ([]string, error) {
	var proxies []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if scheme != "" && !strings.Contains(line, "://") {
			line = scheme + "://" + line
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return proxies, nil
}
