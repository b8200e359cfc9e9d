package git

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CommitCache remembers short ids and subjects of commits by full object id.
// Object ids are immutable, so entries only expire to bound memory across
// long sessions. Symbolic revisions such as HEAD bypass the cache.
type CommitCache struct {
	c *gocache.Cache
}

type commitInfo struct {
	short   string
	subject string
}

// NewCommitCache returns a cache whose entries live for ttl.
func NewCommitCache(ttl time.Duration) *CommitCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CommitCache{c: gocache.New(ttl, 2*ttl)}
}

// Flush drops every entry.
func (cc *CommitCache) Flush() { cc.c.Flush() }

// Len returns the number of cached commits.
func (cc *CommitCache) Len() int { return cc.c.ItemCount() }

// ShortID resolves rev to an abbreviated object id.
func (cc *CommitCache) ShortID(ctx context.Context, r Runner, dir, rev string, timeout time.Duration) (string, error) {
	if info, ok := cc.lookup(dir, rev); ok && info.short != "" {
		return info.short, nil
	}
	out, err := r.Run(ctx, Invocation{
		Dir:     dir,
		Args:    []string{"rev-parse", "--short", rev},
		Env:     readEnv,
		Timeout: timeout,
	})
	if err != nil {
		return "", err
	}
	short := strings.TrimSpace(string(out.Stdout))
	cc.store(dir, rev, func(info *commitInfo) { info.short = short })
	return short, nil
}

// Subject resolves the first line of rev's commit message.
func (cc *CommitCache) Subject(ctx context.Context, r Runner, dir, rev string, timeout time.Duration) (string, error) {
	if info, ok := cc.lookup(dir, rev); ok && info.subject != "" {
		return info.subject, nil
	}
	out, err := r.Run(ctx, Invocation{
		Dir:     dir,
		Args:    []string{"log", "-1", "--format=%s", rev},
		Env:     readEnv,
		Timeout: timeout,
	})
	if err != nil {
		return "", err
	}
	subject := strings.TrimSpace(string(out.Stdout))
	cc.store(dir, rev, func(info *commitInfo) { info.subject = subject })
	return subject, nil
}

func (cc *CommitCache) lookup(dir, rev string) (commitInfo, bool) {
	if !isObjectID(rev) {
		return commitInfo{}, false
	}
	v, ok := cc.c.Get(cacheKey(dir, rev))
	if !ok {
		return commitInfo{}, false
	}
	return v.(commitInfo), true
}

func (cc *CommitCache) store(dir, rev string, update func(*commitInfo)) {
	if !isObjectID(rev) {
		return
	}
	info, _ := cc.lookup(dir, rev)
	update(&info)
	cc.c.SetDefault(cacheKey(dir, rev), info)
}

func cacheKey(dir, rev string) string { return dir + "\x00" + rev }

// isObjectID reports whether s is a full SHA-1 or SHA-256 hex object id.
func isObjectID(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
