package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResponseMetaCollectsEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/analytics/attendance", func(c *gin.Context) {
		SetCacheHit(c, true)
		captured = ResponseMeta(c)
		c.Status(204)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/analytics/attendance", nil))

	assert.Equal(t, true, captured[MetaCacheHit])
	assert.Contains(t, captured, MetaProcessingTime)
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	SetMeta(c, MetaProcessingTime, int64(7))
	meta := ResponseMeta(c)
	meta["mutated"] = true

	assert.Equal(t, int64(7), meta[MetaProcessingTime])
	assert.NotContains(t, ResponseMeta(c), "mutated")
}
