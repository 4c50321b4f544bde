package version

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/augmentkit/config"
	"github.com/kbukum/augmentkit/logger"
)

func TestParseSemVer(t *testing.T) {
	tests := []struct {
		in   string
		want SemVer
	}{
		{"1.4.2", SemVer{Major: 1, Minor: 4, Patch: 2, Pre: ""}},
		{"v2.0.0", SemVer{Major: 2, Minor: 0, Patch: 0}},
		{"1.4", SemVer{Major: 1, Minor: 4, Patch: 0}},
		{"1.4.2-beta.1", SemVer{Major: 1, Minor: 4, Patch: 2, Pre: "beta", PreNum: 1}},
		{"1.4.2-rc2", SemVer{Major: 1, Minor: 4, Patch: 2, Pre: "rc", PreNum: 2}},
		{"1.4.2-alpha", SemVer{Major: 1, Minor: 4, Patch: 2, Pre: "alpha"}},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSemVer(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestParseSemVerInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"dev",
		"1",
		"1.x.2",
		"1.2.3.4",
		"1.2.3-foo",
		"1.2.3-beta.x",
		"1.2.3-0.20240101120000-abcdef123456",
	} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseSemVer(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestSemVerCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.4.2", "1.4.2", 0},
		{"1.4.1", "1.4.2", -1},
		{"1.5.0", "1.4.9", 1},
		{"2.0.0", "1.9.9", 1},
		{"1.4.0-rc.1", "1.4.0", -1},
		{"1.4.0-alpha", "1.4.0-beta", -1},
		{"1.4.0-beta", "1.4.0-rc", -1},
		{"1.4.0-rc.1", "1.4.0-rc.2", -1},
		{"2.0.0-alpha", "1.9.9", 1},
	}

	for _, tc := range tests {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			a, err := ParseSemVer(tc.a)
			if err != nil {
				t.Fatal(err)
			}
			b, err := ParseSemVer(tc.b)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.Compare(b); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
			if got := b.Compare(a); got != -tc.want {
				t.Errorf("expected symmetric %d, got %d", -tc.want, got)
			}
		})
	}
}

func TestSemVerString(t *testing.T) {
	tests := []struct {
		v    SemVer
		want string
	}{
		{SemVer{Major: 1, Minor: 4, Patch: 2}, "1.4.2"},
		{SemVer{Major: 1, Minor: 4, Patch: 2, Pre: "beta", PreNum: 1}, "1.4.2-beta.1"},
		{SemVer{Major: 1, Minor: 4, Pre: "rc"}, "1.4.0-rc"},
	}
	for _, tc := range tests {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}

// proxyStub serves @latest responses and counts hits.
func proxyStub(t *testing.T, version string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+modulePath+"/@latest" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		fmt.Fprintf(w, `{"Version":%q}`, version)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testChecker(srv *httptest.Server, cachePath string) *Checker {
	return &Checker{
		Client:    srv.Client(),
		ProxyURL:  srv.URL,
		CachePath: cachePath,
		TTL:       time.Hour,
		Log:       logger.Get("version"),
	}
}

func TestCheckerLatest(t *testing.T) {
	srv, hits := proxyStub(t, "v1.9.0")
	c := testChecker(srv, filepath.Join(t.TempDir(), "check.json"))

	got, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got != "v1.9.0" {
		t.Errorf("expected v1.9.0, got %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("expected one proxy hit, got %d", hits.Load())
	}

	// A fresh cache entry short-circuits the network.
	got, err = c.Latest(context.Background())
	if err != nil {
		t.Fatalf("cached Latest failed: %v", err)
	}
	if got != "v1.9.0" {
		t.Errorf("expected cached v1.9.0, got %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("expected cache to absorb the second call, got %d hits", hits.Load())
	}
}

func TestCheckerLatestExpiredCache(t *testing.T) {
	srv, hits := proxyStub(t, "v2.0.0")
	cachePath := filepath.Join(t.TempDir(), "check.json")

	stale := fmt.Sprintf(`{"version":"v1.0.0","checked_at":%q}`,
		time.Now().Add(-48*time.Hour).UTC().Format(time.RFC3339))
	if err := os.WriteFile(cachePath, []byte(stale), 0o644); err != nil {
		t.Fatal(err)
	}

	c := testChecker(srv, cachePath)
	got, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got != "v2.0.0" {
		t.Errorf("expected refetched v2.0.0, got %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a proxy hit for the stale cache, got %d", hits.Load())
	}
}

func TestCheckerLatestCorruptCacheIgnored(t *testing.T) {
	srv, _ := proxyStub(t, "v1.9.0")
	cachePath := filepath.Join(t.TempDir(), "check.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := testChecker(srv, cachePath)
	got, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got != "v1.9.0" {
		t.Errorf("expected v1.9.0, got %q", got)
	}
}

func TestCheckerLatestNoCacheDir(t *testing.T) {
	srv, hits := proxyStub(t, "v1.9.0")
	c := testChecker(srv, "")

	for i := 0; i < 2; i++ {
		if _, err := c.Latest(context.Background()); err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("expected no caching without a cache path, got %d hits", hits.Load())
	}
}

func TestCheckerLatestProxyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	c := testChecker(srv, "")
	if _, err := c.Latest(context.Background()); err == nil {
		t.Fatal("expected error from failing proxy")
	}
}

func TestCheckForUpdatesBehind(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"

	srv, hits := proxyStub(t, "v1.2.0")
	c := testChecker(srv, "")

	c.CheckForUpdates(context.Background())
	if hits.Load() != 1 {
		t.Errorf("expected the check to query the proxy, got %d hits", hits.Load())
	}
}

func TestCheckForUpdatesSkipsDevBuilds(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"

	srv, hits := proxyStub(t, "v1.2.0")
	c := testChecker(srv, "")

	c.CheckForUpdates(context.Background())
	if hits.Load() != 0 {
		t.Errorf("expected no proxy hit for an unparseable running version, got %d", hits.Load())
	}
}

func TestUpdateCheckAllowedGates(t *testing.T) {
	// The testing gate always wins under go test; the settings and env gates
	// must force the same answer on their own.
	s := config.DefaultSettings()
	if updateCheckAllowed(s) {
		t.Error("expected update check disallowed under go test")
	}

	s.UpdateCheck = false
	if updateCheckAllowed(s) {
		t.Error("expected update check disallowed when disabled in settings")
	}

	s = config.DefaultSettings()
	s.Offline = true
	if updateCheckAllowed(s) {
		t.Error("expected update check disallowed in offline mode")
	}

	t.Setenv("AUGMENTKIT_NO_UPDATE_CHECK", "1")
	if updateCheckAllowed(config.DefaultSettings()) {
		t.Error("expected update check disallowed by environment opt-out")
	}
}

func TestNewCheckerCachePath(t *testing.T) {
	s := config.DefaultSettings()
	s.CacheDir = "/tmp/augmentkit-cache"
	c := NewChecker(s)
	if c.CachePath != filepath.Join("/tmp/augmentkit-cache", "version-check.json") {
		t.Errorf("unexpected cache path %q", c.CachePath)
	}
	if c.TTL != cacheTTL {
		t.Errorf("expected default TTL, got %v", c.TTL)
	}

	s.CacheDir = ""
	if c := NewChecker(s); c.CachePath != "" {
		t.Errorf("expected empty cache path without a cache dir, got %q", c.CachePath)
	}
}
