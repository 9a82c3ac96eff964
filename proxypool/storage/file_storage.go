package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"liuproxy_harvester/internal/shared/logger"
)

// FileStorage 把代理列表以纯文本形式写入文件, 每行一个代理, '#' 开头的行为注释。
// 写入先落到临时文件再 rename, 读方不会看到写了一半的文件。
type FileStorage struct {
	filePath string
	mu       sync.RWMutex
}

// NewFileStorage 创建一个新的 FileStorage 实例。
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{
		filePath: filePath,
	}
}

// Path returns the file the storage writes to.
func (fs *FileStorage) Path() string {
	return fs.filePath
}

// Load 读取文件中的代理列表。文件不存在时返回空列表。
func (fs *FileStorage) Load() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	l := logger.WithComponent("ProxyPool/Storage")

	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			l.Info().Str("path", fs.filePath).Msg("Proxy list file not found, returning an empty list.")
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	proxies := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fs.filePath, err)
	}

	l.Debug().Int("count", len(proxies)).Str("path", fs.filePath).Msg("Loaded proxy list.")
	return proxies, nil
}

// Save 将代理列表写入文件, header 非空时作为注释写在第一行。
func (fs *FileStorage) Save(proxies []string, header string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	var sb strings.Builder
	if header != "" {
		sb.WriteString("# ")
		sb.WriteString(header)
		sb.WriteString("\n")
	}
	for _, p := range proxies {
		sb.WriteString(p)
		sb.WriteString("\n")
	}

	dir := filepath.Dir(fs.filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, fs.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", fs.filePath, err)
	}

	l.Info().Int("count", len(proxies)).Str("path", fs.filePath).Msg("Saved proxy list.")
	return nil
}

// Header 生成写入文件时使用的注释行。
func Header(version uint64, at time.Time) string {
	return fmt.Sprintf("version %d, written %s", version, at.UTC().Format(time.RFC3339))
}
