// 包 proxy 实现按协议划分的代理池轮换状态机：
// - 每个协议（http/https）一个有序列表，队首即下一个候选（严格 FIFO）
// - 按单代理使用次数上限淘汰；-1 表示不轮换
// - 传输失败时由抓取循环调用 Expire 直接剔除当前代理
//
// State 不做任何加锁，只能在单个 goroutine 内使用。
package proxy

import (
	"fmt"
	"strings"

	"go-simple-scraper/internal/model"
)

// Unlimited 表示单代理可无限复用（不轮换）。
const Unlimited = -1

// Schemes 为支持的代理协议，也是 Select 的遍历顺序。
var Schemes = []string{"http", "https"}

// ErrValidation 与 model.ErrValidation 相同，便于调用方只引用本包。
var ErrValidation = model.ErrValidation

// Entry 为代理池中的一个成员及其累计使用次数。
type Entry struct {
	Address  string
	UseCount int
}

// State 持有各协议代理池、使用上限与当前选择。
type State struct {
	pools   map[string][]*Entry
	limit   int
	current map[string]string
}

// New 创建空代理池状态，limit 必须为 -1 或正整数。
func New(limit int) (*State, error) {
	s := &State{
		pools:   make(map[string][]*Entry),
		current: make(map[string]string),
		limit:   Unlimited,
	}
	if err := s.SetLimit(limit); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLimit 设置单代理使用次数上限；0 会让首次选中即超过上限，因此不接受。
func (s *State) SetLimit(limit int) error {
	if limit < Unlimited || limit == 0 {
		return fmt.Errorf("%w: use-per-proxy limit must be -1 or >= 1, got %d", ErrValidation, limit)
	}
	s.limit = limit
	return nil
}

// Limit 返回当前使用次数上限。
func (s *State) Limit() int { return s.limit }

// SetPool 校验并替换单个协议的代理池；任一地址非法时不修改任何状态。
func (s *State) SetPool(scheme string, addresses []string) error {
	entries, err := buildEntries(scheme, addresses)
	if err != nil {
		return err
	}
	s.pools[scheme] = entries
	return nil
}

// SetPools 按字面形状批量替换，仅替换传入的协议键；先整体校验再落地。
func (s *State) SetPools(pools model.PoolMap) error {
	built := make(map[string][]*Entry, len(pools))
	for scheme, addresses := range pools {
		entries, err := buildEntries(scheme, addresses)
		if err != nil {
			return err
		}
		built[scheme] = entries
	}
	for scheme, entries := range built {
		s.pools[scheme] = entries
	}
	return nil
}

// buildEntries 校验协议键与地址前缀并生成新的条目（计数归零，保持顺序）。
func buildEntries(scheme string, addresses []string) ([]*Entry, error) {
	if !knownScheme(scheme) {
		return nil, fmt.Errorf("%w: unsupported proxy protocol %q", ErrValidation, scheme)
	}
	entries := make([]*Entry, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if err := ValidateAddress(addr); err != nil {
			return nil, err
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		entries = append(entries, &Entry{Address: addr})
	}
	return entries, nil
}

// ValidateAddress 要求地址带有显式的 http:// 或 https:// 前缀（不区分大小写）。
func ValidateAddress(addr string) error {
	lower := strings.ToLower(addr)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil
	}
	return fmt.Errorf("%w: proxy address %q must start with http:// or https://", ErrValidation, addr)
}

func knownScheme(scheme string) bool {
	for _, s := range Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// Select 推进轮换并返回本次各协议的代理地址（空串表示直连）。
func (s *State) Select() map[string]string {
	for _, scheme := range Schemes {
		s.current[scheme] = s.selectScheme(scheme)
	}
	return s.Current()
}

func (s *State) selectScheme(scheme string) string {
	pool := s.pools[scheme]
	cur := s.current[scheme]
	idx := indexOf(pool, cur)
	// 无当前选择（首次或刚被 Expire 清空），或当前选择已不在池中
	if cur == "" || idx < 0 {
		return s.pickFront(scheme)
	}
	if s.limit == Unlimited {
		return cur
	}
	e := pool[idx]
	if e.UseCount >= s.limit {
		s.remove(scheme, idx)
		return s.pickFront(scheme)
	}
	e.UseCount++
	return cur
}

// pickFront 取队首并计数一次；池为空时返回空串。
func (s *State) pickFront(scheme string) string {
	pool := s.pools[scheme]
	if len(pool) == 0 {
		return ""
	}
	pool[0].UseCount++
	return pool[0].Address
}

// Expire 无条件剔除协议当前选中的代理并清空当前选择；无选择时为空操作。
func (s *State) Expire(scheme string) {
	cur := s.current[scheme]
	if cur == "" {
		return
	}
	if idx := indexOf(s.pools[scheme], cur); idx >= 0 {
		s.remove(scheme, idx)
	}
	s.current[scheme] = ""
}

func (s *State) remove(scheme string, idx int) {
	pool := s.pools[scheme]
	s.pools[scheme] = append(pool[:idx:idx], pool[idx+1:]...)
}

func indexOf(pool []*Entry, addr string) int {
	if addr == "" {
		return -1
	}
	for i, e := range pool {
		if e.Address == addr {
			return i
		}
	}
	return -1
}

// Current 返回当前选择的副本。
func (s *State) Current() map[string]string {
	out := make(map[string]string, len(Schemes))
	for _, scheme := range Schemes {
		out[scheme] = s.current[scheme]
	}
	return out
}

// Pool 返回协议代理池的副本（按轮换顺序）。
func (s *State) Pool(scheme string) []Entry {
	pool := s.pools[scheme]
	out := make([]Entry, 0, len(pool))
	for _, e := range pool {
		out = append(out, *e)
	}
	return out
}

// Len 返回协议代理池剩余数量。
func (s *State) Len(scheme string) int { return len(s.pools[scheme]) }
