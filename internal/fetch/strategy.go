package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go-simple-scraper/internal/model"
)

// strategy 是按方法选择一次的请求构造方式（GET 拼查询串，POST 发送表单）。
type strategy int

const (
	getStrategy strategy = iota
	postStrategy
)

// strategyFor 只接受可执行的方法。
func strategyFor(m Method) (strategy, error) {
	switch m {
	case MethodGet:
		return getStrategy, nil
	case MethodPost:
		return postStrategy, nil
	default:
		return 0, fmt.Errorf("%w: method %q is not executable (only GET/POST)", model.ErrConfiguration, m)
	}
}

// formatParams 按策略格式化参数：GET 返回追加了查询串的 URL，POST 返回表单 body。
func (s strategy) formatParams(rawURL string, params map[string]string) (string, io.Reader) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	switch s {
	case postStrategy:
		return rawURL, strings.NewReader(values.Encode())
	default:
		if len(values) == 0 {
			return rawURL, nil
		}
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + values.Encode(), nil
	}
}

func (s strategy) method() string {
	if s == postStrategy {
		return http.MethodPost
	}
	return http.MethodGet
}

// build 构造一次尝试的 *http.Request，携带合并后的头部。
func (s strategy) build(ctx context.Context, r *Request) (*http.Request, error) {
	target, body := s.formatParams(r.url, r.params)
	req, err := http.NewRequestWithContext(ctx, s.method(), target, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
