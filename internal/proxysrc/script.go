package proxysrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"go-simple-scraper/internal/fetch"
	"go-simple-scraper/internal/model"
)

// ScriptSource 抓取把代理列表写在 JS 变量里的页面，例如：
//
//	const fpsList = [{"ip":"1.2.3.4","port":"8080","type":"HTTPS"}];
type ScriptSource struct {
	SourceName string
	URL        string
	Scheme     string
	// Var 为 JS 变量名，默认 fpsList
	Var     string
	Timeout time.Duration
}

// scriptRecord 为 JS 数组中的单条记录，port 可能是字符串或数字。
type scriptRecord struct {
	IP        string          `json:"ip"`
	Port      json.RawMessage `json:"port"`
	Type      string          `json:"type"`
	Country   string          `json:"country"`
	Anonymity string          `json:"anonymity"`
}

func (s *ScriptSource) Name() string { return s.SourceName }

func (s *ScriptSource) Scrape(ctx context.Context) ([]model.ProxyCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := s.Var
	if name == "" {
		name = "fpsList"
	}
	re, err := regexp.Compile(`(?s)(var|let|const)\s+` + regexp.QuoteMeta(name) + `\s*=\s*(\[.*?\]);`)
	if err != nil {
		return nil, fmt.Errorf("compile var pattern: %w", err)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < timeout {
			timeout = left
		}
	}

	c := colly.NewCollector(colly.UserAgent(fetch.DefaultHeaders()["User-Agent"]))
	c.SetRequestTimeout(timeout)

	var out []model.ProxyCandidate
	var parseErr error
	c.OnResponse(func(r *colly.Response) {
		m := re.FindSubmatch(r.Body)
		if len(m) < 3 {
			parseErr = fmt.Errorf("variable %s not found in %s", name, r.Request.URL)
			return
		}
		var list []scriptRecord
		if err := json.Unmarshal(m[2], &list); err != nil {
			parseErr = fmt.Errorf("unmarshal %s: %w", name, err)
			return
		}
		for _, rec := range list {
			port := string(bytes.Trim(rec.Port, `"`))
			if _, err := strconv.Atoi(port); err != nil {
				continue
			}
			if cand, ok := candidate(rec.IP, port, schemeOf(rec.Type, s.Scheme), s.SourceName); ok {
				cand.Country = countryOf(rec.Country)
				cand.Anonymity = anonymityOf(rec.Anonymity)
				out = append(out, cand)
			}
		}
	})
	if err := c.Visit(s.URL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", s.URL, err)
	}
	c.Wait()
	if parseErr != nil {
		return nil, parseErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.URL, err)
	}
	return out, nil
}
