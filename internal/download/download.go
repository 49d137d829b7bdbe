// 包 download 负责把二进制响应（图片/应用数据）写入下载目录。
// 文件名取请求 URL 的最后一段路径，无扩展名时按 Content-Type 子类型补全；同名文件直接覆盖。
package download

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// fallbackName 用于 URL 没有可用路径段时（如 https://host/）。
const fallbackName = "download"

// Save 将 data 写入 dir 下并返回文件绝对路径。
func Save(dir, rawURL, contentType string, data []byte) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	name := FileName(rawURL, contentType)
	p, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", p, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

// FileName 计算落盘文件名：<URL 最后一段>[.<子类型>]。
func FileName(rawURL, contentType string) string {
	name := lastSegment(rawURL)
	if strings.Contains(name, ".") {
		return name
	}
	if ext := subtype(contentType); ext != "" {
		return name + "." + ext
	}
	return name
}

func lastSegment(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	seg := path.Base(p)
	// path.Base 对空路径/根路径返回 "." 或 "/"
	if seg == "." || seg == "/" || seg == "" {
		return fallbackName
	}
	// 去掉路径穿越与分隔符，只保留文件名本身
	seg = strings.ReplaceAll(seg, "..", "")
	seg = strings.Trim(seg, `/\`)
	if seg == "" {
		return fallbackName
	}
	return seg
}

// subtype 提取 Content-Type 的子类型：image/svg+xml; charset=x -> svg。
func subtype(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	_, sub, ok := strings.Cut(strings.ToLower(mt), "/")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(sub, '+'); i > 0 {
		sub = sub[:i]
	}
	return sub
}
