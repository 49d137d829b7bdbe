package fetch

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/http/httpguts"

	"go-simple-scraper/internal/model"
)

// Method 为可配置的 HTTP 方法；仅 GET/POST 可执行，PUT/DELETE 只接受配置。
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// DefaultUserAgent 为默认浏览器 UA，可通过环境变量 SCRAPER_UA 覆盖。
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// DefaultHeaders 返回基础请求头的副本；用户头部在此基础上合并。
func DefaultHeaders() map[string]string {
	ua := os.Getenv("SCRAPER_UA")
	if ua == "" {
		ua = DefaultUserAgent
	}
	return map[string]string{
		"User-Agent":   ua,
		"Content-Type": "application/x-www-form-urlencoded",
	}
}

// ParseMethod 解析方法名（不区分大小写）。
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown http method %q", model.ErrValidation, s)
}

// Request 为一次逻辑抓取的配置；setter 内联校验，重试期间不再修改。
type Request struct {
	method  Method
	url     string
	headers map[string]string
	params  map[string]string
	jar     http.CookieJar
}

// NewRequest 创建默认 GET 请求，头部为 DefaultHeaders。
func NewRequest() *Request {
	return &Request{
		method:  MethodGet,
		headers: DefaultHeaders(),
		params:  map[string]string{},
	}
}

func (r *Request) SetMethod(m Method) error {
	if _, err := ParseMethod(string(m)); err != nil {
		return err
	}
	r.method = Method(strings.ToUpper(string(m)))
	return nil
}

func (r *Request) SetURL(u string) { r.url = strings.TrimSpace(u) }

// SetHeaders 合并（而非替换）头部；任一字段非法时不做修改。
func (r *Request) SetHeaders(h map[string]string) error {
	for k, v := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("%w: invalid header name %q", model.ErrValidation, k)
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return fmt.Errorf("%w: invalid value for header %q", model.ErrValidation, k)
		}
	}
	for k, v := range h {
		r.headers[http.CanonicalHeaderKey(k)] = v
	}
	return nil
}

// SetParams 替换请求参数：GET 拼接为查询串，POST 作为表单 body。
func (r *Request) SetParams(p map[string]string) error {
	for k := range p {
		if k == "" {
			return fmt.Errorf("%w: empty parameter name", model.ErrValidation)
		}
	}
	r.params = make(map[string]string, len(p))
	for k, v := range p {
		r.params[k] = v
	}
	return nil
}

// SetJar 设置 cookie 容器（nil 表示不携带 cookie）。
func (r *Request) SetJar(j http.CookieJar) { r.jar = j }

func (r *Request) Method() Method { return r.method }
func (r *Request) URL() string { return r.url }
func (r *Request) Jar() http.CookieJar { return r.jar }
func (r *Request) Headers() map[string]string { return copyMap(r.headers) }
func (r *Request) Params() map[string]string { return copyMap(r.params) }

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
