// 包 fetch 实现带代理轮换的抓取客户端：
// - 每次尝试前向 proxy.State 取本轮各协议代理
// - 可恢复的传输错误淘汰当前代理并立即重试（无退避）
// - 收到响应后交给 decode 做内容协商
// 客户端同步执行，不做并发抓取；State 不加锁，调用方自行保证单线程使用。
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-simple-scraper/internal/decode"
	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/proxy"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultMaxRedirects   = 30
)

// ErrAttemptsExhausted 在设置了 MaxAttempts 且所有尝试都以可恢复错误结束时返回。
var ErrAttemptsExhausted = errors.New("fetch attempts exhausted")

// Options 为客户端构造参数，显式传入而非依赖全局默认值。
type Options struct {
	// State 为共享的代理池状态；nil 时使用一个空池（始终直连）。
	State          *proxy.State
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// DownloadDir 为图片/应用数据的落盘目录，空表示当前工作目录。
	DownloadDir string
	// MaxAttempts 为单次 Fetch 的最大尝试次数，0 表示不限。
	MaxAttempts  int
	MaxRedirects int
	// Retry 为 Get（代理源页面抓取）的额外重试次数。
	Retry              int
	InsecureSkipVerify bool
	Logger             *slog.Logger
	// Transport 用于替换底层传输（测试）；替换后代理经由 SelectedProxy 读取。
	Transport http.RoundTripper
}

// Client 为带代理轮换与重试的 HTTP 客户端。
type Client struct {
	state       *proxy.State
	http        *http.Client
	decoder     decode.Decoder
	readTimeout time.Duration
	maxAttempts int
	retry       int
	log         *slog.Logger
}

// New 创建客户端，按协议从 State 的当前选择中取代理。
func New(opts Options) (*Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: max attempts must be >= 0", model.ErrValidation)
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.State == nil {
		st, err := proxy.New(proxy.Unlimited)
		if err != nil {
			return nil, err
		}
		opts.State = st
	}
	rt := opts.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:                 proxyFor,
			DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
			TLSHandshakeTimeout:   opts.ConnectTimeout,
			ResponseHeaderTimeout: opts.ReadTimeout,
			ExpectContinueTimeout: 1 * time.Second,
			// 由 decode 自行处理 Content-Encoding
			DisableCompression: true,
			TLSClientConfig:    &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
		}
	}
	maxRedirects := opts.MaxRedirects
	cl := &http.Client{
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, len(via))
			}
			return nil
		},
	}
	return &Client{
		state:       opts.State,
		http:        cl,
		decoder:     decode.Decoder{DownloadDir: opts.DownloadDir},
		readTimeout: opts.ReadTimeout,
		maxAttempts: opts.MaxAttempts,
		retry:       opts.Retry,
		log:         opts.Logger,
	}, nil
}

// State 返回客户端使用的代理池状态。
func (c *Client) State() *proxy.State { return c.state }

// Fetch 执行一次逻辑抓取：选代理 → 发请求 → 可恢复错误则淘汰并重试 → 解码。
func (c *Client) Fetch(ctx context.Context, r *Request) (*model.Result, error) {
	if r == nil || r.url == "" {
		return nil, fmt.Errorf("%w: url is empty", model.ErrConfiguration)
	}
	st, err := strategyFor(r.method)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(r.url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url %q: %v", model.ErrConfiguration, r.url, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported url scheme %q", model.ErrConfiguration, u.Scheme)
	}

	id := uuid.NewString()
	log := c.log.With("id", id, "method", st.method(), "url", r.url)
	var lastErr error
	for attempt := 1; c.maxAttempts == 0 || attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sel := c.state.Select()
		log.Debug("发起请求", "attempt", attempt, "proxy", sel[scheme])
		res, err := c.attempt(ctx, st, r, sel)
		if err == nil {
			res.Attempts = attempt
			log.Info("请求完成", "attempt", attempt, "status", res.StatusCode, "kind", res.Kind.String())
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err, sel[scheme] != "") {
			log.Error("请求失败", "attempt", attempt, "err", err)
			return nil, err
		}
		lastErr = err
		c.state.Expire(scheme)
		log.Warn("传输错误，淘汰代理后重试", "attempt", attempt, "proxy", sel[scheme], "remaining", c.state.Len(scheme), "err", err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, c.maxAttempts, lastErr)
}

// attempt 执行单次请求并读取 body；body 读取使用空闲超时（两次读取之间的最长间隔）。
func (c *Client) attempt(ctx context.Context, st strategy, r *Request, sel map[string]string) (*model.Result, error) {
	actx, cancel := context.WithCancelCause(withSelection(ctx, sel))
	defer cancel(nil)
	req, err := st.build(actx, r)
	if err != nil {
		return nil, err
	}
	hc := *c.http
	hc.Jar = r.jar
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	timer := time.AfterFunc(c.readTimeout, func() { cancel(errReadTimeout) })
	defer timer.Stop()
	body, err := io.ReadAll(&idleReader{r: resp.Body, timer: timer, d: c.readTimeout})
	if err != nil {
		if cause := context.Cause(actx); errors.Is(cause, errReadTimeout) {
			return nil, fmt.Errorf("read body: %w", cause)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	res, err := c.decoder.Decode(r.url, resp.Header, body)
	if err != nil {
		return nil, &fatalError{err: fmt.Errorf("decode response: %w", err)}
	}
	res.StatusCode = resp.StatusCode
	return res, nil
}

// idleReader 每次读取前重置计时器，超时由计时器取消请求上下文。
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	d     time.Duration
}

func (i *idleReader) Read(p []byte) (int, error) {
	i.timer.Reset(i.d)
	return i.r.Read(p)
}

type selectionKey struct{}

func withSelection(ctx context.Context, sel map[string]string) context.Context {
	return context.WithValue(ctx, selectionKey{}, sel)
}

// SelectedProxy 返回本次尝试为该请求协议选中的代理地址，空串表示直连。
func SelectedProxy(req *http.Request) string {
	sel, _ := req.Context().Value(selectionKey{}).(map[string]string)
	if sel == nil {
		return ""
	}
	return sel[strings.ToLower(req.URL.Scheme)]
}

func proxyFor(req *http.Request) (*url.URL, error) {
	addr := SelectedProxy(req)
	if addr == "" {
		return nil, nil
	}
	return url.Parse(addr)
}
