package proxysrc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-simple-scraper/internal/logx"
	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/proxy"
)

// Aggregator 并发抓取全部来源并汇总为 {http: [...], https: [...]}。
type Aggregator struct {
	sources     []Source
	concurrency int
}

// NewAggregator 创建汇总器；concurrency <= 0 时按 4 处理。
func NewAggregator(sources []Source, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Aggregator{sources: sources, concurrency: concurrency}
}

type scrapeResult struct {
	list []model.ProxyCandidate
	err  error
}

// Collect 执行一轮抓取：
// - 结果按来源顺序合并，同一地址仅保留首次出现
// - 仅保留 http/https 协议
// - 所有来源均失败时返回错误，部分失败仅记录日志
func (a *Aggregator) Collect(ctx context.Context) (model.PoolMap, error) {
	if len(a.sources) == 0 {
		return nil, fmt.Errorf("%w: no proxy sources", model.ErrConfiguration)
	}
	results := make([]scrapeResult, len(a.sources))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i, src := range a.sources {
		i, src := i, src
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			list, err := src.Scrape(ctx)
			results[i] = scrapeResult{list: list, err: err}
		}()
	}
	wg.Wait()

	pool := model.PoolMap{}
	seen := map[string]bool{}
	var errs []error
	for i, r := range results {
		name := a.sources[i].Name()
		if r.err != nil {
			logx.Warnf("代理来源抓取失败：%s 错误=%v", name, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", name, r.err))
			continue
		}
		added := 0
		for _, c := range r.list {
			if !isPoolScheme(c.Scheme) {
				continue
			}
			addr := Address(c)
			if seen[addr] {
				continue
			}
			seen[addr] = true
			pool[c.Scheme] = append(pool[c.Scheme], addr)
			added++
		}
		logx.Infof("%s 抓取到 %d 个代理，新增 %d", name, len(r.list), added)
	}
	if len(errs) == len(a.sources) {
		return nil, fmt.Errorf("all proxy sources failed: %w", errors.Join(errs...))
	}
	return pool, nil
}

func isPoolScheme(s string) bool {
	for _, v := range proxy.Schemes {
		if s == v {
			return true
		}
	}
	return false
}
