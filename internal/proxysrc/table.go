package proxysrc

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/rules"
)

// TableSource 解析 HTML 代理表格。
// 规则语法：
// - 文本：".ip" 或 "."（取当前行文本）
// - 属性："td@data-ip"/"@data-port"（当前行属性）
// - 回退：使用 "||" 连接多个候选，按先后尝试
type TableSource struct {
	SourceName string
	URL        string
	Scheme     string
	Table      rules.ProxyTable
	Getter     Getter
}

func (s *TableSource) Name() string { return s.SourceName }

func (s *TableSource) Scrape(ctx context.Context) ([]model.ProxyCandidate, error) {
	resp, err := s.Getter.Get(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("GET proxy table %s: %w", s.URL, err)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parse proxy table html: %w", err)
	}
	var out []model.ProxyCandidate
	doc.Find(s.Table.Item).Each(func(_ int, row *goquery.Selection) {
		scheme := schemeOf(getVal(row, s.Table.Scheme), s.Scheme)
		c, ok := candidate(getVal(row, s.Table.IP), getVal(row, s.Table.Port), scheme, s.SourceName)
		if !ok {
			return
		}
		c.Country = countryOf(getVal(row, s.Table.Country))
		c.Anonymity = anonymityOf(getVal(row, s.Table.Anonymity))
		out = append(out, c)
	})
	return out, nil
}

// getVal 解析表达式并支持使用 "||" 作为回退分隔，例如："td.ip||@data-ip"。
func getVal(scope *goquery.Selection, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	for _, p := range strings.Split(expr, "||") {
		if v := getValSingle(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

// getValSingle 解析单个表达式：文本或属性读取。
func getValSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		el := scope
		if sel != "" {
			el = scope.Find(sel).First()
		}
		val, _ := el.Attr(attr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(scope.Find(expr).First().Text())
}
