package suggest

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/fsoft72/ghostwrite/internal/utils"
)

const nsSeparator = "\x00"

// Cache remembers completions by prompt prefix so a repeated or extended prefix
// can be served without another provider call. It is safe to share between controllers.
type Cache struct {
	trie        *patricia.Trie
	accessTime  map[string]int64
	accessCount int64
	hits        int64
	maxEntries  int
	mu          sync.Mutex
}

// NewCache creates a cache that keeps at most maxEntries completions.
func NewCache(maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		trie:       patricia.NewTrie(),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Put stores the completion produced for prefix in the given namespace.
func (c *Cache) Put(namespace, prefix, completion string) {
	if strings.TrimSpace(completion) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := namespace + nsSeparator + prefix
	if _, ok := c.accessTime[key]; !ok && len(c.accessTime) >= c.maxEntries {
		c.evictLRU()
	}
	c.trie.Set(patricia.Prefix(key), completion)
	c.accessTime[key] = c.nextAccessTime()
}

// Get returns a continuation for prefix. An exact hit returns the stored completion.
// Otherwise the longest cached prefix of prefix is used, provided the text typed since
// then matches the start of its completion and stops on a word boundary.
func (c *Cache) Get(namespace, prefix string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := namespace + nsSeparator + prefix
	scope := namespace + nsSeparator

	var bestKey, best string
	found := false
	err := c.trie.VisitPrefixes(patricia.Prefix(key), func(p patricia.Prefix, item patricia.Item) error {
		k := string(p)
		if !strings.HasPrefix(k, scope) {
			return nil
		}
		if !found || len(k) > len(bestKey) {
			bestKey, best, found = k, item.(string), true
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting completion cache: %v", err)
		return "", false
	}
	if !found {
		return "", false
	}

	rest, ok := continueFrom(bestKey[len(scope):], best, key[len(bestKey):])
	if !ok {
		return "", false
	}
	c.accessTime[bestKey] = c.nextAccessTime()
	c.hits++
	return rest, true
}

// continueFrom strips typed from the completion shown after cachedPrefix.
func continueFrom(cachedPrefix, completion, typed string) (string, bool) {
	if typed == "" {
		return completion, true
	}
	shown := completion
	if utils.NeedsSeparator(cachedPrefix, completion) {
		shown = " " + completion
	}
	if !strings.HasPrefix(shown, typed) {
		return "", false
	}
	rest := shown[len(typed):]
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	// a continuation starting mid-word would be rendered with a bogus separator
	if !utils.EndsWithSpace(typed) && !utils.StartsWithSpace(rest) {
		return "", false
	}
	return rest, true
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trie = patricia.NewTrie()
	c.accessTime = make(map[string]int64, c.maxEntries)
}

// Len returns the number of cached completions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.accessTime)
}

// Stats returns counters for debug output.
func (c *Cache) Stats() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]int{
		"cacheEntries":    len(c.accessTime),
		"maxCacheEntries": c.maxEntries,
		"cacheHits":       int(c.hits),
	}
}

func (c *Cache) nextAccessTime() int64 {
	c.accessCount++
	return c.accessCount
}

func (c *Cache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, accessTime := range c.accessTime {
		if accessTime < oldestTime {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		c.trie.Delete(patricia.Prefix(oldestKey))
		delete(c.accessTime, oldestKey)
		log.Debugf("Evicted prefix of %d bytes from completion cache", len(oldestKey))
	}
}
