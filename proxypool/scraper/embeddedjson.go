package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"liuproxy_harvester/internal/shared/logger"
)

const defaultListVariable = "fpsList"

// EmbeddedJSONScraper 抓取把代理列表以 JSON 数组形式嵌在页面脚本变量中的代理源,
// 例如 `var fpsList = [{"ip":"1.2.3.4","port":"80"}];`。
type EmbeddedJSONScraper struct {
	url          string
	variable     string
	pattern      *regexp.Regexp
	timeout      time.Duration
	forwardProxy string
}

// tempEmbeddedProxy 定义了用于解析 JS 变量中 JSON 的临时结构体。端口可能是字符串也可能是数字。
type tempEmbeddedProxy struct {
	IP       string          `json:"ip"`
	Port     json.RawMessage `json:"port"`
	Protocol string          `json:"protocol,omitempty"`
	Type     string          `json:"type,omitempty"`
}

// NewEmbeddedJSONScraper 创建一个新的 EmbeddedJSONScraper。
// source 的格式为 "url" 或 "url|变量名"。
func NewEmbeddedJSONScraper(source string, timeout time.Duration, forwardProxy string) Scraper {
	pageURL, variable, _ := strings.Cut(source, "|")
	variable = strings.TrimSpace(variable)
	if variable == "" {
		variable = defaultListVariable
	}
	return &EmbeddedJSONScraper{
		url:          strings.TrimSpace(pageURL),
		variable:     variable,
		pattern:      regexp.MustCompile(`(?s)(?:var|let|const)\s+` + regexp.QuoteMeta(variable) + `\s*=\s*(\[.*?\]);`),
		timeout:      timeout,
		forwardProxy: forwardProxy,
	}
}

func (s *EmbeddedJSONScraper) Name() string {
	return "json:" + s.url
}

func (s *EmbeddedJSONScraper) Scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Msg("Starting scrape...")

	// A fresh collector per scrape: colly remembers visited URLs.
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)
	if s.forwardProxy != "" {
		if err := c.SetProxy(s.forwardProxy); err != nil {
			l.Error().Err(err).Str("proxy_url", s.forwardProxy).Msg("Invalid forward proxy URL, falling back to direct connection.")
		}
	}

	var (
		mu        sync.Mutex
		proxies   []string
		scrapeErr error
	)

	c.OnResponse(func(r *colly.Response) {
		matches := s.pattern.FindSubmatch(r.Body)
		if len(matches) < 2 {
			mu.Lock()
			scrapeErr = fmt.Errorf("variable %s not found in %s", s.variable, r.Request.URL)
			mu.Unlock()
			return
		}

		var tempList []tempEmbeddedProxy
		if err := json.Unmarshal(matches[1], &tempList); err != nil {
			mu.Lock()
			scrapeErr = fmt.Errorf("failed to unmarshal %s: %w", s.variable, err)
			mu.Unlock()
			return
		}

		mu.Lock()
		defer mu.Unlock()
		for _, p := range tempList {
			port := strings.Trim(string(p.Port), `"`)
			candidate, err := formatCandidate(p.IP, port, p.Protocol+p.Type)
			if err != nil {
				l.Debug().Err(err).Str("source", s.Name()).Msg("Skipping entry.")
				continue
			}
			proxies = append(proxies, candidate)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		scrapeErr = fmt.Errorf("request to %s failed (status %d): %w", r.Request.URL, r.StatusCode, err)
		mu.Unlock()
	})

	if err := c.Visit(s.url); err != nil {
		mu.Lock()
		if scrapeErr == nil {
			scrapeErr = err
		}
		mu.Unlock()
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if scrapeErr != nil {
		return nil, scrapeErr
	}

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
