// 包 cookies 从本机浏览器的 cookie 数据库（SQLite）导入 cookie，
// 基于 modernc.org/sqlite（纯 Go 实现），结果写入带公共后缀表的 CookieJar。
package cookies

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	_ "modernc.org/sqlite"

	"go-simple-scraper/internal/model"
)

type OS int

const (
	Unknown OS = iota
	Linux
	MacOS
	Windows
)

// DetectOS 返回当前运行的操作系统。
func DetectOS() OS {
	switch runtime.GOOS {
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	}
	return Unknown
}

type Browser int

const (
	None Browser = iota
	Chrome
	Firefox
)

func (b Browser) String() string {
	switch b {
	case Chrome:
		return "chrome"
	case Firefox:
		return "firefox"
	}
	return "none"
}

func ParseBrowser(s string) (Browser, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "chrome":
		return Chrome, nil
	case "firefox":
		return Firefox, nil
	}
	return None, fmt.Errorf("%w: unknown browser %q", model.ErrValidation, s)
}

// DefaultStorePath 返回浏览器默认的 cookie 数据库路径；Firefox 取第一个含 cookies.sqlite 的 profile。
func DefaultStorePath(b Browser, o OS, home string) (string, error) {
	var candidates []string
	switch b {
	case Chrome:
		switch o {
		case Linux:
			base := filepath.Join(home, ".config", "google-chrome", "Default")
			candidates = []string{filepath.Join(base, "Network", "Cookies"), filepath.Join(base, "Cookies")}
		case MacOS:
			base := filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default")
			candidates = []string{filepath.Join(base, "Network", "Cookies"), filepath.Join(base, "Cookies")}
		case Windows:
			base := filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default")
			candidates = []string{filepath.Join(base, "Network", "Cookies"), filepath.Join(base, "Cookies")}
		}
	case Firefox:
		var profiles string
		switch o {
		case Linux:
			profiles = filepath.Join(home, ".mozilla", "firefox")
		case MacOS:
			profiles = filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
		case Windows:
			profiles = filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox", "Profiles")
		}
		if profiles != "" {
			matches, _ := filepath.Glob(filepath.Join(profiles, "*", "cookies.sqlite"))
			sort.Strings(matches)
			candidates = matches
		}
	default:
		return "", fmt.Errorf("%w: no cookie store for browser %s", model.ErrConfiguration, b)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: unsupported os for %s cookies", model.ErrConfiguration, b)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s cookie store not found (tried %s): %w", b, strings.Join(candidates, ", "), os.ErrNotExist)
}

// Import 读取 cookie 数据库；domain 非空时仅保留该域名及其子域的 cookie，已过期的丢弃。
// 数据库可能被浏览器锁定，因此先复制到临时文件再以只读方式打开。
func Import(ctx context.Context, b Browser, path, domain string) ([]*http.Cookie, error) {
	var query string
	switch b {
	case Chrome:
		// 仅有 encrypted_value 的行（value 为空）无法解密，直接跳过
		query = `SELECT host_key, name, value, path, expires_utc, is_secure, is_httponly FROM cookies WHERE value <> ''`
	case Firefox:
		query = `SELECT host, name, value, path, expiry, isSecure, isHttpOnly FROM moz_cookies`
	default:
		return nil, nil
	}
	tmp, err := snapshot(path)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite", "file:"+tmp+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open cookie store %s: %w", path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s cookies: %w", b, err)
	}
	defer rows.Close()
	now := time.Now()
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	var out []*http.Cookie
	for rows.Next() {
		var host, name, value, cpath string
		var expires int64
		var secure, httpOnly bool
		if err := rows.Scan(&host, &name, &value, &cpath, &expires, &secure, &httpOnly); err != nil {
			return nil, fmt.Errorf("scan %s cookies: %w", b, err)
		}
		if domain != "" && !matchDomain(host, domain) {
			continue
		}
		c := &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     cpath,
			Domain:   strings.TrimPrefix(host, "."),
			Secure:   secure,
			HttpOnly: httpOnly,
		}
		if exp := expiry(b, expires); !exp.IsZero() {
			if exp.Before(now) {
				continue
			}
			c.Expires = exp
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s cookies: %w", b, err)
	}
	return out, nil
}

// NewJar 创建使用公共后缀表的 CookieJar。
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// Load 将 cookie 按其 host 写入 jar，返回写入数量。
func Load(jar http.CookieJar, list []*http.Cookie) int {
	n := 0
	for _, c := range list {
		host := c.Domain
		if host == "" {
			continue
		}
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		jar.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: "/"}, []*http.Cookie{c})
		n++
	}
	return n
}

// chromeEpochDelta 为 1601-01-01 与 Unix 纪元之间的微秒数（Chrome expires_utc 的起点）。
const chromeEpochDelta = 11644473600 * 1_000_000

// expiry 换算过期时间，0 表示会话 cookie。
func expiry(b Browser, v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if b == Chrome {
		return time.UnixMicro(v - chromeEpochDelta)
	}
	// 新版 Firefox 以毫秒存储
	if v > 1e11 {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}

func matchDomain(host, domain string) bool {
	h := strings.TrimPrefix(strings.ToLower(host), ".")
	return h == domain || strings.HasSuffix(h, "."+domain)
}

func snapshot(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open cookie store %s: %w", path, err)
	}
	defer src.Close()
	dst, err := os.CreateTemp("", "cookies-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("create temp copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copy cookie store: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close temp copy: %w", err)
	}
	return dst.Name(), nil
}
