package synthesizer

import (
	"crypto/sha1"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// audioCache 按发音人和文本内容缓存合成结果
type audioCache struct {
	store *gocache.Cache
}

func newAudioCache(expiry time.Duration) *audioCache {
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	return &audioCache{
		store: gocache.New(expiry, 2*expiry),
	}
}

// cacheKey 文本取 sha1 避免超长 key
func cacheKey(voice, text string) string {
	return fmt.Sprintf("tts-%s-%x", voice, sha1.Sum([]byte(text)))
}

func (c *audioCache) get(voice, text string) ([]byte, bool) {
	v, ok := c.store.Get(cacheKey(voice, text))
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

func (c *audioCache) put(voice, text string, data []byte) {
	c.store.SetDefault(cacheKey(voice, text), data)
}
