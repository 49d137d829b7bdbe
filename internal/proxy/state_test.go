package proxy_test

import (
	"errors"
	"testing"

	"go-simple-scraper/internal/model"
	"go-simple-scraper/internal/proxy"
)

const (
	proxyA = "http://10.0.0.1:8080"
	proxyB = "http://10.0.0.2:8080"
	proxyC = "http://10.0.0.3:8080"
)

func newState(t *testing.T, limit int, http ...string) *proxy.State {
	t.Helper()
	s, err := proxy.New(limit)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := s.SetPool("http", http); err != nil {
		t.Fatalf("set pool: %v", err)
	}
	return s
}

func TestSelect_FiniteLimitRotatesFIFO(t *testing.T) {
	s := newState(t, 2, proxyA, proxyB, proxyC)
	want := []string{proxyA, proxyA, proxyB, proxyB, proxyC, proxyC, "", "", ""}
	for i, w := range want {
		got := s.Select()["http"]
		if got != w {
			t.Fatalf("select #%d = %q, want %q", i+1, got, w)
		}
	}
	if n := s.Len("http"); n != 0 {
		t.Fatalf("pool len = %d, want 0", n)
	}
}

func TestSelect_CountsNeverExceedLimit(t *testing.T) {
	s := newState(t, 3, proxyA, proxyB)
	for i := 0; i < 5; i++ {
		s.Select()
		for _, e := range s.Pool("http") {
			if e.UseCount > 3 {
				t.Fatalf("entry %s count %d exceeds limit", e.Address, e.UseCount)
			}
		}
	}
}

func TestExpire_IsUnconditional(t *testing.T) {
	s := newState(t, 5, proxyA, proxyB)
	if got := s.Select()["http"]; got != proxyA {
		t.Fatalf("first select = %q, want A", got)
	}
	s.Expire("http")
	if cur := s.Current()["http"]; cur != "" {
		t.Fatalf("current after expire = %q, want empty", cur)
	}
	pool := s.Pool("http")
	if len(pool) != 1 || pool[0].Address != proxyB {
		t.Fatalf("pool after expire = %+v, want only B", pool)
	}
	if got := s.Select()["http"]; got != proxyB {
		t.Fatalf("select after expire = %q, want B", got)
	}
	if c := s.Pool("http")[0].UseCount; c != 1 {
		t.Fatalf("B count = %d, want 1", c)
	}
}

func TestExpire_NoSelectionIsNoop(t *testing.T) {
	s := newState(t, 2, proxyA)
	s.Expire("http")
	s.Expire("https")
	if n := s.Len("http"); n != 1 {
		t.Fatalf("pool len = %d, want 1", n)
	}
}

func TestSelect_UnlimitedNeverRotates(t *testing.T) {
	s := newState(t, proxy.Unlimited, proxyA, proxyB)
	for i := 0; i < 10; i++ {
		if got := s.Select()["http"]; got != proxyA {
			t.Fatalf("select #%d = %q, want A", i+1, got)
		}
	}
	pool := s.Pool("http")
	if len(pool) != 2 || pool[0].UseCount != 1 || pool[1].UseCount != 0 {
		t.Fatalf("pool mutated: %+v", pool)
	}
}

func TestSelect_EmptyPoolMeansDirect(t *testing.T) {
	s, err := proxy.New(proxy.Unlimited)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	sel := s.Select()
	if sel["http"] != "" || sel["https"] != "" {
		t.Fatalf("selection = %v, want direct", sel)
	}
}

func TestNew_RejectsZeroLimit(t *testing.T) {
	if _, err := proxy.New(0); !errors.Is(err, proxy.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	s := newState(t, 1, proxyA, proxyB)
	if err := s.SetLimit(0); !errors.Is(err, proxy.ErrValidation) {
		t.Fatalf("SetLimit(0) err = %v", err)
	}
	if s.Limit() != 1 {
		t.Fatalf("limit changed to %d after rejected SetLimit", s.Limit())
	}
	// limit=1：每个代理只服务一次，计数始终不超过上限
	for i, w := range []string{proxyA, proxyB, ""} {
		if got := s.Select()["http"]; got != w {
			t.Fatalf("select #%d = %q, want %q", i+1, got, w)
		}
		for _, e := range s.Pool("http") {
			if e.UseCount > s.Limit() {
				t.Fatalf("entry %s count %d exceeds limit", e.Address, e.UseCount)
			}
		}
	}
}

func TestSetPool_RejectsMissingScheme(t *testing.T) {
	s := newState(t, 2, proxyA)
	err := s.SetPool("http", []string{proxyB, "10.0.0.1:8080"})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	pool := s.Pool("http")
	if len(pool) != 1 || pool[0].Address != proxyA {
		t.Fatalf("pool mutated on failure: %+v", pool)
	}
}

func TestSetPools_ReplacesOnlySuppliedKeys(t *testing.T) {
	s := newState(t, 2, proxyA)
	if err := s.SetPools(model.PoolMap{"https": {"https://10.0.0.9:443", "HTTPS://10.0.0.8:443"}}); err != nil {
		t.Fatalf("set pools: %v", err)
	}
	if n := s.Len("http"); n != 1 {
		t.Fatalf("http pool len = %d, want 1", n)
	}
	if n := s.Len("https"); n != 2 {
		t.Fatalf("https pool len = %d, want 2", n)
	}
	err := s.SetPools(model.PoolMap{"https": {"https://10.0.0.7:443"}, "socks5": {"http://x:1"}})
	if !errors.Is(err, proxy.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for unknown protocol", err)
	}
	if n := s.Len("https"); n != 2 {
		t.Fatalf("https pool changed after failed SetPools: %d", n)
	}
}

func TestSelect_StaleSelectionFallsBackToFront(t *testing.T) {
	s := newState(t, 3, proxyA)
	s.Select()
	if err := s.SetPool("http", []string{proxyB, proxyC}); err != nil {
		t.Fatalf("set pool: %v", err)
	}
	if got := s.Select()["http"]; got != proxyB {
		t.Fatalf("select = %q, want B", got)
	}
}

func TestNew_RejectsLimitBelowUnlimited(t *testing.T) {
	if _, err := proxy.New(-2); !errors.Is(err, proxy.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
