// 命令行入口：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志、代理池、HTTP 客户端与 cookie
// - 可选抓取公开代理列表（-aggregate），然后抓取 -url 并按内容类型输出
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"

	"go-simple-scraper/internal/config"
	"go-simple-scraper/internal/cookies"
	"go-simple-scraper/internal/fetch"
	"go-simple-scraper/internal/logx"
	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/proxy"
	"go-simple-scraper/internal/proxysrc"
	"go-simple-scraper/internal/rules"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// kvFlag 为可重复的 key=value 参数。
type kvFlag map[string]string

func (f kvFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k+"="+f[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (f kvFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expect key=value, got %q", s)
	}
	f[strings.TrimSpace(k)] = v
	return nil
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = fs.String("rules", "rules.yaml", "path to rules.yaml (optional)")
		rawURL     = fs.String("url", "", "url to fetch")
		method     = fs.String("method", "GET", "http method (GET|POST)")
		aggregate  = fs.Bool("aggregate", false, "scrape PROXY.SOURCES into the pool before fetching")
		params     = kvFlag{}
		headers    = kvFlag{}
	)
	fs.Var(params, "param", "request parameter key=value (repeatable)")
	fs.Var(headers, "header", "request header key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 1) 加载配置与规则；配置文件不存在时使用默认值
	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	// 2) 初始化日志：级别/格式/语言/颜色
	log := logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	rl := rules.Default()
	if *rulesPath != "" {
		if r, err := rules.Load(*rulesPath); err == nil {
			rl = r
		} else if !errors.Is(err, os.ErrNotExist) {
			logx.Warnf("加载规则失败，使用内置预设：%v", err)
		}
	}

	// 3) 代理池与 HTTP 客户端
	state, err := proxy.New(*cfg.Proxy.UsePerProxy)
	if err != nil {
		log.Error("代理池初始化失败", "err", err)
		return 1
	}
	if err := state.SetPools(cfg.Proxy.Pool); err != nil {
		log.Error("代理池配置非法", "err", err)
		return 1
	}
	cl, err := fetch.New(fetch.Options{
		State:              state,
		ConnectTimeout:     cfg.Timeout.Connect,
		ReadTimeout:        cfg.Timeout.Read,
		DownloadDir:        cfg.DownloadPath,
		MaxAttempts:        cfg.MaxAttempts,
		MaxRedirects:       cfg.MaxRedirects,
		Retry:              *cfg.Retry,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             log,
	})
	if err != nil {
		log.Error("创建 HTTP 客户端失败", "err", err)
		return 1
	}

	// 4) 可选：抓取公开代理列表覆盖对应协议的池
	if *aggregate {
		if err := collectProxies(ctx, cfg, rl, cl, state); err != nil {
			log.Error("代理列表汇总失败", "err", err)
			return 1
		}
		if *rawURL == "" {
			return printPools(stdout, state)
		}
	}
	if *rawURL == "" {
		fmt.Fprintln(os.Stderr, "missing -url")
		fs.Usage()
		return 2
	}

	// 5) 构建请求
	req := fetch.NewRequest()
	m, err := fetch.ParseMethod(*method)
	if err == nil {
		err = req.SetMethod(m)
	}
	if err == nil {
		err = req.SetHeaders(cfg.Headers)
	}
	if err == nil {
		err = req.SetHeaders(headers)
	}
	if err == nil {
		err = req.SetParams(params)
	}
	if err != nil {
		log.Error("请求参数非法", "err", err)
		return 2
	}
	req.SetURL(*rawURL)
	jar, err := loadJar(ctx, cfg.Cookies, log)
	if err != nil {
		log.Error("导入 cookie 失败", "err", err)
		return 1
	}
	req.SetJar(jar)

	// 6) 抓取并输出
	res, err := cl.Fetch(ctx, req)
	if err != nil {
		log.Error("抓取失败", "url", *rawURL, "err", err)
		return 1
	}
	if err := printResult(stdout, res); err != nil {
		log.Error("输出结果失败", "err", err)
		return 1
	}
	return 0
}

func collectProxies(ctx context.Context, cfg *config.Config, rl *rules.Rules, g proxysrc.Getter, state *proxy.State) error {
	srcs, err := proxysrc.FromConfig(cfg.Proxy.Sources, rl, g)
	if err != nil {
		return err
	}
	pool, err := proxysrc.NewAggregator(srcs, 4).Collect(ctx)
	if err != nil {
		return err
	}
	if err := state.SetPools(pool); err != nil {
		return err
	}
	logx.Infof("代理池已更新：http=%d https=%d", state.Len("http"), state.Len("https"))
	return nil
}

// loadJar 创建 cookie 容器，并按配置从浏览器导入 cookie。
func loadJar(ctx context.Context, c config.Cookies, log *slog.Logger) (http.CookieJar, error) {
	j, err := cookies.NewJar()
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}
	b, err := cookies.ParseBrowser(c.Browser)
	if err != nil || b == cookies.None {
		return j, err
	}
	path := c.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home dir: %w", err)
		}
		if path, err = cookies.DefaultStorePath(b, cookies.DetectOS(), home); err != nil {
			return nil, err
		}
	}
	list, err := cookies.Import(ctx, b, path, c.Domain)
	if err != nil {
		return nil, err
	}
	log.Info("已导入 cookie", "browser", b.String(), "count", cookies.Load(j, list))
	return j, nil
}

func printPools(w io.Writer, state *proxy.State) int {
	out := model.PoolMap{}
	for _, scheme := range proxy.Schemes {
		for _, e := range state.Pool(scheme) {
			out[scheme] = append(out[scheme], e.Address)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 1
	}
	return 0
}

// printResult 按结果类型输出：JSON/XML 格式化打印，文件打印路径，原始字节直接写出。
func printResult(w io.Writer, res *model.Result) error {
	switch res.Kind {
	case model.KindJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.JSON)
	case model.KindXML:
		_, err := fmt.Fprintln(w, res.XML.OutputXML(true))
		return err
	case model.KindFile:
		_, err := fmt.Fprintln(w, res.Path)
		return err
	case model.KindRaw:
		_, err := w.Write(res.Body)
		return err
	case model.KindDecodeFailure:
		logx.Warnf("gzip 解压失败，输出原始字节（%d）", len(res.Body))
		_, err := w.Write(res.Body)
		return err
	default:
		logx.Infof("响应没有头部，无内容输出（status=%d）", res.StatusCode)
		return nil
	}
}
