package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/middleware"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

func scopeFromContext(c *gin.Context) access.Scope {
	scope, ok := middleware.ScopeFromContext(c)
	if !ok {
		return nil
	}
	return scope
}

func bindAnalyticsQuery(c *gin.Context) (dto.AnalyticsQuery, error) {
	var query dto.AnalyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return query, bindingError(err, "invalid query parameters")
	}
	return query, nil
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return bindingError(err, "invalid request body")
	}
	return nil
}

// bindingError names the offending field when the decoder reports one.
func bindingError(err error, fallback string) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return appErrors.Invalid(typeErr.Field, fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type))
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0].Field()
		return appErrors.Invalid(field, fmt.Sprintf("%s is invalid", field))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return appErrors.Clone(appErrors.ErrValidation, "request body is not valid JSON")
	}
	return appErrors.Clone(appErrors.ErrValidation, fallback)
}

// respondTimed writes data with cache and timing metadata.
func respondTimed(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, middleware.MetaProcessingTime, time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, data, nil, middleware.ResponseMeta(c))
}
