package speech

import "sync"

// AudioCache is a bounded in-memory cache of synthesized audio. Altitude
// announcements repeat the same few numbers, so nearly every utterance
// after the first minute is a hit. The key includes the voice so
// switching voices never replays the old one. Oldest entries are evicted
// first.
type AudioCache struct {
	mu      sync.Mutex
	voice   string
	max     int
	entries map[string][]byte
	order   []string
	hits    int64
	misses  int64
}

// NewAudioCache creates a cache holding at most max entries (default 256).
func NewAudioCache(voice string, max int) *AudioCache {
	if max <= 0 {
		max = 256
	}
	return &AudioCache{
		voice:   voice,
		max:     max,
		entries: make(map[string][]byte),
	}
}

func (c *AudioCache) key(text string) string { return c.voice + ":" + text }

// Get returns cached audio for text.
func (c *AudioCache) Get(text string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[c.key(text)]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Put stores audio for text, evicting the oldest entry when full.
func (c *AudioCache) Put(text string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(text)
	if _, ok := c.entries[k]; ok {
		c.entries[k] = audio
		return
	}
	for len(c.order) >= c.max {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[k] = audio
	c.order = append(c.order, k)
}

// Len returns the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
