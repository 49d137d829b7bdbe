// 包 proxysrc 负责从公开代理列表抓取候选代理，并汇总成代理池：
// - TableSource：HTML 表格（rules.yaml 预设选择器）
// - FeedSource：RSS/Atom/JSON Feed 正文中的 ip:port
// - ScriptSource：页面 JS 变量中内嵌的 JSON 数组
package proxysrc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go-simple-scraper/internal/config"
	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/rules"
)

// Source 为单个代理来源。
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]model.ProxyCandidate, error)
}

// Getter 抓取页面，调用方负责关闭 resp.Body；fetch.Client 实现了该接口。
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// FromConfig 按配置构建来源列表；table 类型按 Preset 名称从规则中取选择器，
// 配置了 countries/anonymity 的来源再套一层过滤。
func FromConfig(srcs []config.Source, rl *rules.Rules, g Getter) ([]Source, error) {
	out := make([]Source, 0, len(srcs))
	for i, s := range srcs {
		var src Source
		switch s.Type {
		case "table":
			p, ok := rl.GetPreset(s.Preset)
			if !ok || p.ProxyTable == nil {
				return nil, fmt.Errorf("%w: source %d: no proxy_table preset %q", model.ErrConfiguration, i, s.Preset)
			}
			src = &TableSource{SourceName: s.Name, URL: s.URL, Scheme: s.Scheme, Table: *p.ProxyTable, Getter: g}
		case "feed":
			src = &FeedSource{SourceName: s.Name, URL: s.URL, Scheme: s.Scheme, Getter: g}
		case "script":
			src = &ScriptSource{SourceName: s.Name, URL: s.URL, Scheme: s.Scheme, Var: s.Var}
		default:
			return nil, fmt.Errorf("%w: source %d: unsupported type %q", model.ErrConfiguration, i, s.Type)
		}
		if f := NewFilter(s.Countries, s.Anonymity); !f.Empty() {
			src = Filtered(src, f)
		}
		out = append(out, src)
	}
	return out, nil
}

// Address 返回候选代理的池地址，形如 http://1.2.3.4:8080。
func Address(c model.ProxyCandidate) string {
	return c.Scheme + "://" + net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// candidate 校验 ip/port 文本并构造候选；不合法时返回 false。
func candidate(ip, port, scheme, source string) (model.ProxyCandidate, bool) {
	ip = strings.TrimSpace(ip)
	port = strings.TrimSpace(port)
	if port == "" {
		if h, p, err := net.SplitHostPort(ip); err == nil {
			ip, port = h, p
		}
	}
	if net.ParseIP(ip) == nil {
		return model.ProxyCandidate{}, false
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return model.ProxyCandidate{}, false
	}
	return model.ProxyCandidate{IP: ip, Port: n, Scheme: scheme, Source: source}, true
}

// schemeOf 将页面上的协议描述归一化：https/yes 视为 https，socks 原样保留（汇总时丢弃），其余使用默认协议。
func schemeOf(text, fallback string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(t, "socks"):
		return "socks"
	case strings.Contains(t, "https"), t == "yes":
		return "https"
	case strings.Contains(t, "http"), t == "no":
		return "http"
	}
	if fallback == "" {
		return "http"
	}
	return fallback
}
