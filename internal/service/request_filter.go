package service

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// validationError converts validator output into a 400 naming the first offending field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fieldPath(fe.Namespace())
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "uuid":
			message = fmt.Sprintf("%s must be a valid UUID", field)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", field)
		case "min":
			message = fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		invalid := appErrors.Invalid(field, message)
		invalid.Err = err
		return invalid
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

// wireValidator reports field errors by their json or form names.
func wireValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		v = validator.New()
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// fieldPath strips the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, appErrors.Invalid(field, fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", field))
	}
	return &parsed, nil
}

// recordFilter validates an analytics query and converts it into a record filter.
func recordFilter(validate *validator.Validate, q dto.AnalyticsQuery) (models.RecordFilter, error) {
	if err := validate.Struct(q); err != nil {
		return models.RecordFilter{}, validationError(err)
	}
	from, err := parseDate("start_date", q.StartDate)
	if err != nil {
		return models.RecordFilter{}, err
	}
	to, err := parseDate("end_date", q.EndDate)
	if err != nil {
		return models.RecordFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return models.RecordFilter{}, appErrors.Invalid("end_date", "end_date must not be before start_date")
	}
	return models.RecordFilter{
		CourseID:  q.CourseID,
		StudentID: q.StudentID,
		FacultyID: q.FacultyID,
		UserID:    q.UserID,
		UserType:  models.UserRole(q.UserType),
		Action:    q.Action,
		ScoreType: models.ScoreType(q.ScoreType),
		DateFrom:  from,
		DateTo:    to,
	}, nil
}

func notFoundOr(err error, message, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
