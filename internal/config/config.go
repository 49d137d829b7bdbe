// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/proxy"
)

type Config struct {
	Headers            map[string]string `yaml:"HEADERS"`
	Proxy              Proxy             `yaml:"PROXY"`
	Timeout            Timeout           `yaml:"TIMEOUT"`
	MaxAttempts        int               `yaml:"MAX_ATTEMPTS"`  // 0 = 不限
	MaxRedirects       int               `yaml:"MAX_REDIRECTS"` // 默认 30
	Retry              *int              `yaml:"RETRY"`         // 代理源页面重试次数，默认 2，0 表示不重试
	DownloadPath       string            `yaml:"DOWNLOAD_PATH"`
	InsecureSkipVerify bool              `yaml:"INSECURE_SKIP_VERIFY"`
	Cookies            Cookies           `yaml:"COOKIES"`
	LogLevel           string            `yaml:"LOG_LEVEL"`
	LogFormat          string            `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale          string            `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor           string            `yaml:"LOG_COLOR"`  // auto|always|never
}

type Proxy struct {
	// Pool 为字面代理池：{http: [...], https: [...]}
	Pool model.PoolMap `yaml:"POOL"`
	// Sources 为公开代理列表来源，-aggregate 时抓取并覆盖对应协议的池
	Sources []Source `yaml:"SOURCES"`
	// UsePerProxy：单代理最多被选中的次数，-1 表示不轮换
	UsePerProxy *int `yaml:"USE_PER_PROXY"`
}

type Source struct {
	Type   string `yaml:"type"` // table|feed|script
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Preset string `yaml:"preset"` // table：rules.yaml 预设名
	Scheme string `yaml:"scheme"` // 默认协议 http|https
	Var    string `yaml:"var"`    // script：页面中 JS 变量名
	// Countries/Anonymity 非空时仅保留匹配的候选（不区分大小写）；来源未提供该字段的候选会被过滤
	Countries []string `yaml:"countries"`
	Anonymity []string `yaml:"anonymity"` // elite|anonymous|transparent
}

type Timeout struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
}

type Cookies struct {
	Browser string `yaml:"browser"` // none|chrome|firefox
	Path    string `yaml:"path"`    // 为空时按系统默认路径查找
	Domain  string `yaml:"domain"`  // 仅导入该域名（含子域）的 cookie
}

// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config %s: %v", model.ErrValidation, path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default 返回全部使用默认值的配置（无配置文件时使用）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.Proxy.UsePerProxy == nil {
		v := proxy.Unlimited
		c.Proxy.UsePerProxy = &v
	}
	if v := *c.Proxy.UsePerProxy; v < proxy.Unlimited || v == 0 {
		return fmt.Errorf("%w: PROXY.USE_PER_PROXY must be -1 or >= 1", model.ErrValidation)
	}
	for scheme, list := range c.Proxy.Pool {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("%w: PROXY.POOL: unsupported protocol %q", model.ErrValidation, scheme)
		}
		for _, addr := range list {
			if err := proxy.ValidateAddress(addr); err != nil {
				return fmt.Errorf("PROXY.POOL.%s: %w", scheme, err)
			}
		}
	}
	for i := range c.Proxy.Sources {
		s := &c.Proxy.Sources[i]
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		switch s.Type {
		case "table", "feed", "script":
		default:
			return fmt.Errorf("%w: PROXY.SOURCES[%d]: unsupported type %q", model.ErrValidation, i, s.Type)
		}
		if s.URL == "" {
			return fmt.Errorf("%w: PROXY.SOURCES[%d]: url required", model.ErrValidation, i)
		}
		if s.Scheme == "" {
			s.Scheme = "http"
		}
		if s.Name == "" {
			s.Name = s.URL
		}
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: MAX_ATTEMPTS must be >= 0", model.ErrValidation)
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 30
	}
	if c.Retry == nil {
		v := 2
		c.Retry = &v
	}
	if *c.Retry < 0 {
		return fmt.Errorf("%w: RETRY must be >= 0", model.ErrValidation)
	}
	if c.Timeout.Connect <= 0 {
		c.Timeout.Connect = 10 * time.Second
	}
	if c.Timeout.Read <= 0 {
		c.Timeout.Read = 10 * time.Second
	}
	if c.DownloadPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		c.DownloadPath = wd
	}
	c.Cookies.Browser = strings.ToLower(strings.TrimSpace(c.Cookies.Browser))
	if c.Cookies.Browser == "" {
		c.Cookies.Browser = "none"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}
