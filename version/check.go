package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/augmentkit/config"
	"github.com/kbukum/augmentkit/logger"
)

// modulePath is this module on the Go module proxy.
const modulePath = "github.com/kbukum/augmentkit"

// defaultProxyURL is the public Go module proxy.
const defaultProxyURL = "https://proxy.golang.org"

// checkTimeout bounds the latest-version request.
const checkTimeout = 2 * time.Second

// cacheTTL is how long a fetched latest version stays valid on disk.
const cacheTTL = 24 * time.Hour

// prereleaseRank orders prerelease tags below releases:
// alpha < beta < rc < release.
var prereleaseRank = map[string]int{
	"alpha": 0,
	"beta":  1,
	"rc":    2,
	"":      3,
}

// SemVer is a parsed semantic version with prerelease ordering.
type SemVer struct {
	Major, Minor, Patch int
	// Pre is the prerelease tag (alpha, beta, or rc), empty for a release.
	Pre string
	// PreNum is the number after the tag, as in rc2.
	PreNum int
}

// ParseSemVer parses versions like 1.4.2, v1.4.2, 1.4, or 1.4.2-beta.1.
// Prerelease tags other than alpha, beta, and rc are rejected.
func ParseSemVer(s string) (SemVer, error) {
	var v SemVer

	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return v, fmt.Errorf("empty version")
	}

	base := s
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		base = s[:idx]
		pre := strings.ToLower(s[idx+1:])
		tag := strings.TrimRight(pre, "0123456789")
		num := pre[len(tag):]
		tag = strings.TrimSuffix(tag, ".")
		if _, ok := prereleaseRank[tag]; !ok || tag == "" {
			return v, fmt.Errorf("unsupported prerelease %q in version %q", pre, s)
		}
		v.Pre = tag
		if num != "" {
			n, err := strconv.Atoi(num)
			if err != nil {
				return v, fmt.Errorf("bad prerelease number in version %q", s)
			}
			v.PreNum = n
		}
	}

	parts := strings.Split(base, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return v, fmt.Errorf("version %q is not major.minor[.patch]", s)
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return v, fmt.Errorf("bad version component %q in %q", part, s)
		}
		nums[i] = n
	}
	v.Major, v.Minor = nums[0], nums[1]
	if len(nums) == 3 {
		v.Patch = nums[2]
	}
	return v, nil
}

// Compare orders two versions: -1 when v is older than o, 0 when equal,
// +1 when newer. A release outranks any prerelease of the same triple.
func (v SemVer) Compare(o SemVer) int {
	ours := []int{v.Major, v.Minor, v.Patch, prereleaseRank[v.Pre], v.PreNum}
	theirs := []int{o.Major, o.Minor, o.Patch, prereleaseRank[o.Pre], o.PreNum}
	for i := range ours {
		switch {
		case ours[i] < theirs[i]:
			return -1
		case ours[i] > theirs[i]:
			return 1
		}
	}
	return 0
}

// String formats the version without the leading v.
func (v SemVer) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
		if v.PreNum > 0 {
			s += "." + strconv.Itoa(v.PreNum)
		}
	}
	return s
}

// Checker fetches the latest published version from the module proxy, with a
// TTL'd cache file so repeated processes stay off the network.
type Checker struct {
	Client    *http.Client
	ProxyURL  string
	CachePath string
	TTL       time.Duration
	Log       *logger.Logger
}

// NewChecker creates a checker from the library settings. An empty cache dir
// disables the cache file.
func NewChecker(settings *config.Settings) *Checker {
	cachePath := ""
	if settings.CacheDir != "" {
		cachePath = filepath.Join(settings.CacheDir, "version-check.json")
	}
	return &Checker{
		Client:    &http.Client{Timeout: checkTimeout},
		ProxyURL:  defaultProxyURL,
		CachePath: cachePath,
		TTL:       cacheTTL,
		Log:       logger.Get("version"),
	}
}

// cachedCheck is the on-disk cache record.
type cachedCheck struct {
	Version   string    `json:"version"`
	CheckedAt time.Time `json:"checked_at"`
}

// Latest returns the latest published version string, like v1.4.2. A fresh
// cache entry short-circuits the network.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	if cached, ok := c.readCache(); ok {
		return cached, nil
	}

	url := c.ProxyURL + "/" + modulePath + "/@latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("module proxy returned %s", resp.Status)
	}

	var latest struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return "", fmt.Errorf("decoding module proxy response: %w", err)
	}
	if latest.Version == "" {
		return "", fmt.Errorf("module proxy returned no version")
	}

	c.writeCache(latest.Version)
	return latest.Version, nil
}

func (c *Checker) readCache() (string, bool) {
	if c.CachePath == "" {
		return "", false
	}
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		return "", false
	}
	var rec cachedCheck
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false
	}
	if rec.Version == "" || time.Since(rec.CheckedAt) > c.TTL {
		return "", false
	}
	return rec.Version, true
}

// writeCache is best effort; an unwritable cache dir only costs refetches.
func (c *Checker) writeCache(version string) {
	if c.CachePath == "" {
		return
	}
	rec := cachedCheck{Version: version, CheckedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.CachePath), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(c.CachePath, data, 0o644)
}

// CheckForUpdates compares the running version against the latest published
// one and logs a warning when behind. Failures are logged at debug and
// swallowed; an update check must never break the caller.
func (c *Checker) CheckForUpdates(ctx context.Context) {
	running := Resolve().Version
	current, err := ParseSemVer(running)
	if err != nil {
		// Dev and pseudo-version builds have nothing to compare against.
		c.Log.Debug("skipping update check", logger.Fields("version", running))
		return
	}

	latestStr, err := c.Latest(ctx)
	if err != nil {
		c.Log.Debug("update check failed", logger.Fields("error", err.Error()))
		return
	}
	latest, err := ParseSemVer(latestStr)
	if err != nil {
		c.Log.Debug("update check failed", logger.Fields("error", err.Error()))
		return
	}

	if current.Compare(latest) < 0 {
		c.Log.Warn("A new version of augmentkit is available", logger.Fields(
			"current", current.String(),
			"latest", latest.String(),
		))
	}
}

// updateCheckAllowed applies the settings and environment gates.
func updateCheckAllowed(settings *config.Settings) bool {
	if testing.Testing() || !settings.UpdateCheck || settings.Offline {
		return false
	}
	switch strings.ToLower(os.Getenv("AUGMENTKIT_NO_UPDATE_CHECK")) {
	case "1", "true", "yes", "on":
		return false
	}
	return true
}

// CheckForUpdates runs one gated update check against the library settings.
func CheckForUpdates(ctx context.Context) {
	settings := config.Default()
	if !updateCheckAllowed(settings) {
		return
	}
	NewChecker(settings).CheckForUpdates(ctx)
}

var checkOnce sync.Once

// CheckInBackground runs CheckForUpdates once per process, off the caller's
// goroutine. Pipeline construction calls this.
func CheckInBackground() {
	checkOnce.Do(func() {
		go CheckForUpdates(context.Background())
	})
}
