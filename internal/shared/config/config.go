package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"liuproxy_harvester/internal/shared/types"
)

// DefaultJudges 是默认的 judge 列表: 返回请求环境信息的公开页面。
var DefaultJudges = []string{
	"http://httpbin.org/get?show_env",
	"http://www.proxy-listen.de/azenv.php",
	"https://www2.htw-dresden.de/~beck/cgi-bin/env.cgi",
	"http://www.meow.org.uk/cgi-bin/env.pl",
	"http://www.wfuchs.de/azenv.php",
	"http://wfuchs.de/azenv.php",
	"https://users.ugent.be/~bfdwever/start/env.cgi",
	"http://www.suave.net/~dave/cgi/env.cgi",
	"http://www.cknuckles.com/cgi/env.cgi",
	"http://httpheader.net",
	"http://kheper.csoft.net/stuff/env.cgi",
	"http://proxyjudge.us",
	"http://www.proxyjudge.biz",
	"http://azenv.net",
	"https://www.andrews.edu/~bidwell/examples/env.cgi",
	"http://shinh.org/env.cgi",
	"http://users.on.net/~emerson/env/env.pl",
	"http://www.9ravens.com/env.cgi",
	"http://www2t.biglobe.ne.jp/~take52/test/env.cgi",
	"http://www3.wind.ne.jp/hassii/env.cgi",
	"http://xrea.fukuyan.net/env.cgi",
}

// DefaultTextLists 是默认启用的纯文本代理列表。
var DefaultTextLists = []string{
	"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt",
	"https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt",
	"https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/http.txt",
}

// Default 返回一份可直接运行的配置。
func Default() *types.Config {
	return &types.Config{
		PipelineConf: types.PipelineConf{
			CheckerWorkers:         100,
			QueueSize:              1024,
			WatcherPollMillis:      1000,
			RefetchIntervalSeconds: 1,
			ReportIntervalSeconds:  10,
		},
		CheckerConf: types.CheckerConf{
			Judges:                   append([]string(nil), DefaultJudges...),
			JudgeTimeoutMillis:       3000,
			SecondCheckTimeoutMillis: 6000,
			Retry:                    1,
		},
		SourcesConf: types.SourcesConf{
			TextLists:      append([]string(nil), DefaultTextLists...),
			TimeoutSeconds: 20,
		},
		SinkConf: types.SinkConf{
			Workers:         1,
			IntervalSeconds: 30,
			IdleMillis:      1000,
		},
		LogConf: types.LogConf{Level: "info"},
	}
}

// LoadIni 将 ini 文件映射到 cfg 上。文件中没有出现的键保留 cfg 中原有的值,
// 所以通常先用 Default() 得到 cfg 再调用本函数。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", fileName, err)
	}
	clearListedKeys(iniFile, cfg)
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map config file '%s': %w", fileName, err)
	}
	ApplyEnv(cfg)
	Normalize(cfg)
	return nil
}

// clearListedKeys 清空文件中出现过的列表键对应的默认值。
// MapTo 会忽略空的列表值, 不先清空的话 "text_lists =" 无法关闭默认源。
func clearListedKeys(iniFile *ini.File, cfg *types.Config) {
	lists := map[string]map[string]*[]string{
		"checker": {
			"judges": &cfg.CheckerConf.Judges,
		},
		"sources": {
			"text_lists":       &cfg.SourcesConf.TextLists,
			"socks_text_lists": &cfg.SourcesConf.SocksTextLists,
			"html_tables":      &cfg.SourcesConf.HTMLTables,
			"embedded_json":    &cfg.SourcesConf.EmbeddedJSON,
			"files":            &cfg.SourcesConf.Files,
			"static":           &cfg.SourcesConf.Static,
		},
	}
	for section, keys := range lists {
		sec, err := iniFile.GetSection(section)
		if err != nil {
			continue
		}
		for key, target := range keys {
			if sec.HasKey(key) {
				*target = nil
			}
		}
	}
}

// ApplyEnv 用环境变量覆盖部分配置。
func ApplyEnv(cfg *types.Config) {
	overrideFromEnvInt(&cfg.PipelineConf.CheckerWorkers, "HARVESTER_CHECKER_WORKERS")
	overrideFromEnvString(&cfg.CheckerConf.SecondCheckURL, "HARVESTER_SECOND_CHECK_URL")
	overrideFromEnvString(&cfg.LogConf.Level, "HARVESTER_LOG_LEVEL")
	overrideFromEnvInt(&cfg.WebConf.Port, "HARVESTER_WEB_PORT")
}

// Normalize 清理列表项中的空白并把非法的数值恢复为默认值。
func Normalize(cfg *types.Config) {
	def := Default()

	if cfg.PipelineConf.CheckerWorkers <= 0 {
		cfg.PipelineConf.CheckerWorkers = def.PipelineConf.CheckerWorkers
	}
	if cfg.PipelineConf.QueueSize <= 0 {
		cfg.PipelineConf.QueueSize = def.PipelineConf.QueueSize
	}
	if cfg.PipelineConf.WatcherPollMillis <= 0 {
		cfg.PipelineConf.WatcherPollMillis = def.PipelineConf.WatcherPollMillis
	}
	if cfg.PipelineConf.RefetchIntervalSeconds < 0 {
		cfg.PipelineConf.RefetchIntervalSeconds = 0
	}
	if cfg.PipelineConf.ReportIntervalSeconds < 0 {
		cfg.PipelineConf.ReportIntervalSeconds = 0
	}
	if cfg.CheckerConf.JudgeTimeoutMillis <= 0 {
		cfg.CheckerConf.JudgeTimeoutMillis = def.CheckerConf.JudgeTimeoutMillis
	}
	if cfg.CheckerConf.SecondCheckTimeoutMillis <= 0 {
		cfg.CheckerConf.SecondCheckTimeoutMillis = def.CheckerConf.SecondCheckTimeoutMillis
	}
	if cfg.CheckerConf.Retry <= 0 {
		cfg.CheckerConf.Retry = def.CheckerConf.Retry
	}
	if cfg.SourcesConf.TimeoutSeconds <= 0 {
		cfg.SourcesConf.TimeoutSeconds = def.SourcesConf.TimeoutSeconds
	}
	if cfg.SinkConf.Workers <= 0 {
		cfg.SinkConf.Workers = def.SinkConf.Workers
	}
	if cfg.SinkConf.IntervalSeconds <= 0 {
		cfg.SinkConf.IntervalSeconds = def.SinkConf.IntervalSeconds
	}
	if cfg.SinkConf.IdleMillis <= 0 {
		cfg.SinkConf.IdleMillis = def.SinkConf.IdleMillis
	}

	cfg.CheckerConf.Judges = cleanList(cfg.CheckerConf.Judges)
	if len(cfg.CheckerConf.Judges) == 0 {
		cfg.CheckerConf.Judges = def.CheckerConf.Judges
	}
	cfg.CheckerConf.SecondCheckURL = strings.TrimSpace(cfg.CheckerConf.SecondCheckURL)
	cfg.SourcesConf.TextLists = cleanList(cfg.SourcesConf.TextLists)
	cfg.SourcesConf.SocksTextLists = cleanList(cfg.SourcesConf.SocksTextLists)
	cfg.SourcesConf.HTMLTables = cleanList(cfg.SourcesConf.HTMLTables)
	cfg.SourcesConf.EmbeddedJSON = cleanList(cfg.SourcesConf.EmbeddedJSON)
	cfg.SourcesConf.Files = cleanList(cfg.SourcesConf.Files)
	cfg.SourcesConf.Static = cleanList(cfg.SourcesConf.Static)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
