package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"liuproxy_harvester/internal/shared/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// newHTTPClient 创建抓取用的 client。forwardProxy 不为空时通过它访问代理源, 用于绕过源站的 WAF。
func newHTTPClient(timeout time.Duration, forwardProxy string) *http.Client {
	l := logger.WithComponent("ProxyPool/Scraper")
	transport := &http.Transport{}

	if forwardProxy != "" {
		proxyURL, err := url.Parse(forwardProxy)
		if err != nil {
			l.Error().Err(err).Str("proxy_url", forwardProxy).Msg("Invalid forward proxy URL, falling back to direct connection.")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// fetchPage 请求 pageURL 并在状态码为 200 时返回响应体, 调用方负责关闭。
func fetchPage(ctx context.Context, client *http.Client, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("received non-200 status code (%d) from %s", resp.StatusCode, pageURL)
	}
	return resp.Body, nil
}

// formatCandidate 把解析出的 ip/port 拼成候选代理字符串。
// 声明为 socks5 的代理带上 scheme, 其余按 HTTP 代理处理。
func formatCandidate(ip, portStr, protocol string) (string, error) {
	ip = strings.TrimSpace(ip)
	portStr = strings.TrimSpace(portStr)
	if ip == "" {
		return "", fmt.Errorf("empty ip")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %q", portStr)
	}
	if strings.Contains(strings.ToLower(protocol), "socks5") {
		return fmt.Sprintf("socks5://%s:%d", ip, port), nil
	}
	return fmt.Sprintf("%s:%d", ip, port), nil
}
