package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errReadTimeout      = errors.New("read timeout")
)

// fatalError 标记不参与重试判定的错误（如 deflate 解压失败、JSON/XML 解析失败）。
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// isTransient 判定传输错误是否值得淘汰代理后重试：
// 连接拒绝/重置、连接或读取超时、重定向过多、TLS 握手/证书失败。
// 域名解析失败仅在经由代理时可恢复（解析的是代理主机），直连时目标主机不存在，重试无意义。
// 其余错误视为致命，直接返回给调用方。
func isTransient(err error, proxied bool) bool {
	var fe *fatalError
	if err == nil || errors.As(err, &fe) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return proxied
	}
	if errors.Is(err, errTooManyRedirects) || errors.Is(err, errReadTimeout) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.EPIPE,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	// 代理或服务端在响应前断开
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if isTLSFailure(err) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// dial 失败与经由代理的建连失败（proxyconnect）
	var op *net.OpError
	if errors.As(err, &op) && (op.Op == "dial" || op.Op == "proxyconnect") {
		return true
	}
	return false
}

func isTLSFailure(err error) bool {
	var (
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		verifyErr  *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}
