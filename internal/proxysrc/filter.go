package proxysrc

import (
	"context"
	"strings"

	"go-simple-scraper/internal/model"
)

// Filter 按国家代码与匿名级别筛选候选；对应列表为空时不限制该字段。
type Filter struct {
	countries map[string]bool
	anonymity map[string]bool
}

func NewFilter(countries, anonymity []string) Filter {
	f := Filter{}
	for _, c := range countries {
		if v := countryOf(c); v != "" {
			if f.countries == nil {
				f.countries = map[string]bool{}
			}
			f.countries[v] = true
		}
	}
	for _, a := range anonymity {
		if v := anonymityOf(a); v != "" {
			if f.anonymity == nil {
				f.anonymity = map[string]bool{}
			}
			f.anonymity[v] = true
		}
	}
	return f
}

func (f Filter) Empty() bool { return len(f.countries) == 0 && len(f.anonymity) == 0 }

// Match 判断候选是否满足过滤条件，字段为空的候选视为不匹配。
func (f Filter) Match(c model.ProxyCandidate) bool {
	if len(f.countries) > 0 && !f.countries[c.Country] {
		return false
	}
	if len(f.anonymity) > 0 && !f.anonymity[c.Anonymity] {
		return false
	}
	return true
}

type filteredSource struct {
	Source
	filter Filter
}

// Filtered 包装来源，Scrape 结果只保留 f 匹配的候选。
func Filtered(src Source, f Filter) Source {
	return &filteredSource{Source: src, filter: f}
}

func (s *filteredSource) Scrape(ctx context.Context) ([]model.ProxyCandidate, error) {
	list, err := s.Source.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, c := range list {
		if s.filter.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// countryOf 归一化国家代码：去空白并转大写，仅接受两位字母。
func countryOf(text string) string {
	t := strings.ToUpper(strings.TrimSpace(text))
	if len(t) != 2 || t[0] < 'A' || t[0] > 'Z' || t[1] < 'A' || t[1] > 'Z' {
		return ""
	}
	return t
}

// anonymityOf 将站点上的匿名描述归一化，例如 "elite proxy"/"HIA" -> elite，"NOA" -> transparent。
func anonymityOf(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "elite"), strings.Contains(t, "high"), t == "hia":
		return "elite"
	case strings.Contains(t, "transparent"), t == "noa":
		return "transparent"
	case strings.Contains(t, "anon"), t == "anm":
		return "anonymous"
	}
	return ""
}
