// 包 rules 负责加载并提供代理列表页的解析规则（rules.yaml），
// 以预设名（如 default/free-proxy-list）组织 CSS 选择器，供 proxysrc.TableSource 使用。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个代理列表站点的解析规则。
type Preset struct {
	ProxyTable *ProxyTable `yaml:"proxy_table"`
}

// ProxyTable 描述代理表格的选择器：
// - item：每行代理的容器
// - ip/port：取文本或属性（支持 td:nth-child(1) / @data-ip）
// - scheme：可选，取值含 https/yes 时视为 https，否则使用来源默认协议
// - country/anonymity：可选，供 SOURCES 中的 countries/anonymity 过滤
type ProxyTable struct {
	Item      string `yaml:"item"`
	IP        string `yaml:"ip"`
	Port      string `yaml:"port"`
	Scheme    string `yaml:"scheme"`
	Country   string `yaml:"country"`
	Anonymity string `yaml:"anonymity"`
}

// Default 为内置预设：常见的 "IP | Port | Code | Country | Anonymity | Google | Https" 表格布局。
func Default() *Rules {
	return &Rules{Presets: map[string]Preset{
		"default": {ProxyTable: &ProxyTable{
			Item:      "table tbody tr",
			IP:        "td:nth-child(1)",
			Port:      "td:nth-child(2)",
			Scheme:    "td.hx||td:nth-child(7)",
			Country:   "td:nth-child(3)",
			Anonymity: "td:nth-child(5)",
		}},
	}}
}

func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	for name, p := range r.Presets {
		if p.ProxyTable != nil && (p.ProxyTable.Item == "" || p.ProxyTable.IP == "") {
			return nil, fmt.Errorf("rules %s: preset %q needs item and ip selectors", path, name)
		}
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	return Preset{}, false
}
