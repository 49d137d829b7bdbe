// 包 decode 负责响应内容协商：
// - 先按 Content-Encoding 解压（gzip 失败降级为原始字节，deflate 失败直接报错）
// - 再按 Content-Type 分派为 JSON 值、XML 树、落盘文件或原始字节
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"go-simple-scraper/internal/download"
	"go-simple-scraper/internal/model"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Decoder 持有落盘目录；零值表示写入当前工作目录。
type Decoder struct {
	DownloadDir string
}

// Decode 将原始响应转换为 Result。requestURL 用于计算下载文件名。
func (d Decoder) Decode(requestURL string, header http.Header, body []byte) (*model.Result, error) {
	if len(header) == 0 {
		return &model.Result{Kind: model.KindEmpty}, nil
	}
	content := body
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Encoding"))) {
	case "gzip":
		out, err := gunzip(body)
		if err != nil {
			return &model.Result{Kind: model.KindDecodeFailure, Body: body, Header: header}, nil
		}
		content = out
	case "deflate":
		out, err := inflate(body)
		if err != nil {
			return nil, fmt.Errorf("inflate body: %w", err)
		}
		content = out
	}

	ct := strings.ToLower(header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "application/json"):
		var v any
		if err := json.Unmarshal(content, &v); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return &model.Result{Kind: model.KindJSON, JSON: v, Header: header}, nil
	case strings.Contains(ct, "text/xml"):
		doc, err := xmlquery.Parse(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		return &model.Result{Kind: model.KindXML, XML: doc, Header: header}, nil
	case strings.HasPrefix(ct, "image/"):
		return d.save(requestURL, ct, content, header)
	case strings.HasPrefix(ct, "application/"):
		return d.save(requestURL, ct, forceDecompress(content), header)
	default:
		return &model.Result{Kind: model.KindRaw, Body: content, Header: header}, nil
	}
}

func (d Decoder) save(requestURL, contentType string, data []byte, header http.Header) (*model.Result, error) {
	p, err := download.Save(d.DownloadDir, requestURL, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("save download: %w", err)
	}
	return &model.Result{Kind: model.KindFile, Path: p, Header: header}, nil
}

// forceDecompress 对通用 application/* 内容再做一次解压尝试：仍是 gzip 流则解开，否则原样返回。
func forceDecompress(data []byte) []byte {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data
	}
	out, err := gunzip(data)
	if err != nil {
		return data
	}
	return out
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
