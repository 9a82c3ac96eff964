package scraper

import (
	"context"
	"fmt"
	"os"
)

// FileScraper 从本地文件读取代理列表, 格式与 TextListScraper 相同。
type FileScraper struct {
	path string
}

// NewFileScraper 创建一个新的 FileScraper。
func NewFileScraper(path string) Scraper {
	return &FileScraper{path: path}
}

func (s *FileScraper) Name() string {
	return "file:" + s.path
}

func (s *FileScraper) Scrape(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer f.Close()
	return parseLines(f, "")
}
