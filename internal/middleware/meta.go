package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Envelope meta keys written by analytics, dashboard and attendance reads.
const (
	MetaCacheHit       = "cache_hit"
	MetaProcessingTime = "processing_time_ms"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_started_at"
)

// WithResponseMeta stamps the request start and prepares the meta map handlers fill in.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit marks whether the payload came from the analytics cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// SetMeta stores a single meta entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaMap(c)[key] = value
}

// ResponseMeta returns a copy of the collected meta. processing_time_ms is filled from the
// request start when WithResponseMeta ran and no handler set it explicitly.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	src := metaMap(c)
	out := make(map[string]interface{}, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	if _, ok := out[MetaProcessingTime]; !ok {
		if started, ok := c.Get(requestStartKey); ok {
			if t, ok := started.(time.Time); ok {
				out[MetaProcessingTime] = time.Since(t).Milliseconds()
			}
		}
	}
	return out
}

func metaMap(c *gin.Context) map[string]interface{} {
	if meta, ok := c.Get(responseMetaKey); ok {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
