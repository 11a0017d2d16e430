// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success envelope. Meta maps are merged left to right.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	for _, m := range meta {
		if len(m) == 0 {
			continue
		}
		if envelope.Meta == nil {
			envelope.Meta = make(map[string]interface{}, len(m))
		}
		for k, v := range m {
			envelope.Meta[k] = v
		}
	}
	c.JSON(status, envelope)
}

// Error converts err to the typed error envelope. The wrapped cause never reaches the
// client; for server errors it is attached to the gin context for the access log.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= 500 {
		_ = c.Error(err)
	}
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
