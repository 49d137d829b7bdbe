package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Get 直连抓取页面（不经过代理池），失败或非 2xx 时立即重试 Retry 次。
// 用于代理源页面等辅助抓取，调用方负责关闭 resp.Body；
// body 读取沿用 ReadTimeout 作为空闲超时，超时后读取返回错误。
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		actx, cancel := context.WithCancelCause(ctx)
		req, reqErr := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
		if reqErr != nil {
			cancel(nil)
			lastErr = fmt.Errorf("new request: %w", reqErr)
			break
		}
		req.Header.Set("User-Agent", DefaultHeaders()["User-Agent"])
		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			timer := time.AfterFunc(c.readTimeout, func() { cancel(errReadTimeout) })
			resp.Body = &idleBody{
				idleReader: idleReader{r: resp.Body, timer: timer, d: c.readTimeout},
				body:       resp.Body,
				ctx:        actx,
				cancel:     cancel,
			}
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("http status: %s", resp.Status)
			if resp.Body != nil {
				resp.Body.Close()
			}
		} else {
			lastErr = err
		}
		cancel(nil)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Debug("页面抓取失败", "url", url, "try", i+1, "err", lastErr)
	}
	return nil, lastErr
}

// idleBody 在 idleReader 之上负责关闭时释放计时器与请求上下文，并把超时错误还原为 errReadTimeout。
type idleBody struct {
	idleReader
	body   io.ReadCloser
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.idleReader.Read(p)
	if err != nil && err != io.EOF {
		if errors.Is(context.Cause(b.ctx), errReadTimeout) {
			return n, fmt.Errorf("read body: %w", errReadTimeout)
		}
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel(nil)
	return err
}
