package proxysrc

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"go-simple-scraper/internal/model"
)

var ipPortRe = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{1,3}){3}):(\d{1,5})\b`)

// FeedSource 从订阅条目的标题/摘要/正文中提取 ip:port。
type FeedSource struct {
	SourceName string
	URL        string
	Scheme     string
	Getter     Getter
}

func (s *FeedSource) Name() string { return s.SourceName }

func (s *FeedSource) Scrape(ctx context.Context) ([]model.ProxyCandidate, error) {
	// gofeed 不直接接收自定义 http.Client，先抓取再交给 gofeed 解析
	resp, err := s.Getter.Get(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("GET feed %s: %w", s.URL, err)
	}
	defer resp.Body.Close()
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", s.URL, err)
	}
	var out []model.ProxyCandidate
	for _, it := range feed.Items {
		scheme := s.Scheme
		for _, cat := range it.Categories {
			if strings.EqualFold(strings.TrimSpace(cat), "https") {
				scheme = "https"
			}
		}
		text := strings.Join([]string{it.Title, it.Description, it.Content}, "\n")
		for _, m := range ipPortRe.FindAllStringSubmatch(text, -1) {
			if ip := net.ParseIP(m[1]); ip == nil || ip.To4() == nil {
				continue
			}
			if c, ok := candidate(m[1], m[2], schemeOf("", scheme), s.SourceName); ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}
