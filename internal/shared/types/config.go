package types

// PipelineConf 包含周期流水线的调度参数
type PipelineConf struct {
	CheckerWorkers         int `ini:"checker_workers"`
	QueueSize              int `ini:"queue_size"`
	WatcherPollMillis      int `ini:"watcher_poll_ms"`
	RefetchIntervalSeconds int `ini:"refetch_interval_seconds"`
	ReportIntervalSeconds  int `ini:"report_interval_seconds"`
}

// CheckerConf 包含存活验证相关的配置
type CheckerConf struct {
	Judges                   []string `ini:"judges" delim:","`
	SecondCheckURL           string   `ini:"second_check_url"`
	JudgeTimeoutMillis       int      `ini:"judge_timeout_ms"`
	SecondCheckTimeoutMillis int      `ini:"second_check_timeout_ms"`
	Retry                    int      `ini:"retry"`
}

// SourcesConf 列出所有候选代理来源。每个列表项都是一个 URL 或文件路径。
type SourcesConf struct {
	TextLists      []string `ini:"text_lists" delim:","`
	SocksTextLists []string `ini:"socks_text_lists" delim:","`
	HTMLTables     []string `ini:"html_tables" delim:","`
	EmbeddedJSON   []string `ini:"embedded_json" delim:","`
	Files          []string `ini:"files" delim:","`
	Static         []string `ini:"static" delim:","`
	TimeoutSeconds int      `ini:"timeout_seconds"`
	ForwardProxy   string   `ini:"forward_proxy"` // 抓取时使用的前置代理, 为空表示直连
}

// SinkConf 包含下游消费者(sink worker)的配置
type SinkConf struct {
	Workers         int    `ini:"workers"`
	IntervalSeconds int    `ini:"interval_seconds"`
	IdleMillis      int    `ini:"idle_ms"`
	ExportPath      string `ini:"export_path"`
}

// WebConf 包含只读状态服务的配置, Port 为 0 表示禁用
type WebConf struct {
	Port     int    `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"password"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是 harvester 的统一配置结构体
type Config struct {
	PipelineConf `ini:"pipeline"`
	CheckerConf  `ini:"checker"`
	SourcesConf  `ini:"sources"`
	SinkConf     `ini:"sink"`
	WebConf      `ini:"web"`
	LogConf      `ini:"log"`
}
