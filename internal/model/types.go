// 包 model 定义跨包共享的数据模型（抓取结果/代理候选/代理池形状）与错误哨兵。
package model

import (
	"net/http"

	"github.com/antchfx/xmlquery"
)

// Kind 标识 Result 的具体变体。
type Kind int

const (
	// KindEmpty：响应没有任何头部，不返回内容（区别于空 body）。
	KindEmpty Kind = iota
	KindJSON
	KindXML
	KindFile
	KindRaw
	// KindDecodeFailure：gzip 解压失败，Body 为原始压缩字节。
	KindDecodeFailure
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindJSON:
		return "json"
	case KindXML:
		return "xml"
	case KindFile:
		return "file"
	case KindRaw:
		return "raw"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// Result 为一次抓取的最终结果，按 Kind 读取对应字段：
// - KindJSON：JSON
// - KindXML：XML
// - KindFile：Path
// - KindRaw/KindDecodeFailure：Body
type Result struct {
	Kind       Kind
	JSON       any
	XML        *xmlquery.Node
	Path       string
	Body       []byte
	StatusCode int
	Header     http.Header
	// Attempts 为本次抓取实际发出的请求次数（含失败重试）。
	Attempts int
}

// ProxyCandidate 为代理源抓取到、尚未格式化为地址的代理。
type ProxyCandidate struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	Scheme string `json:"scheme"` // http|https
	Source string `json:"source"`
	// Country 为两位国家代码（大写），来源未提供时为空
	Country string `json:"country,omitempty"`
	// Anonymity 归一化为 elite|anonymous|transparent，来源未提供时为空
	Anonymity string `json:"anonymity,omitempty"`
}

// PoolMap 为代理池的字面形状：{"http": [...], "https": [...]}，地址必须带协议前缀。
type PoolMap map[string][]string
