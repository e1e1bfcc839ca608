package schema

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	dateTimeLayout = "2006-01-02T15:04:05Z07:00"
	dateLayout     = "2006-01-02"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// stringTag builds the validator tag for a String shape. Pattern is checked separately.
func stringTag(s String) string {
	var tags []string
	if s.MinLen > 0 {
		tags = append(tags, "min="+strconv.Itoa(s.MinLen))
	}
	if s.MaxLen > 0 {
		tags = append(tags, "max="+strconv.Itoa(s.MaxLen))
	}
	switch s.Format {
	case FormatEmail, FormatUUID, FormatURL, FormatJWT:
		tags = append(tags, string(s.Format))
	case FormatDateTime:
		tags = append(tags, "datetime="+dateTimeLayout)
	case FormatDate:
		tags = append(tags, "datetime="+dateLayout)
	}
	return strings.Join(tags, ",")
}

func checkString(s String, v string) string {
	if tag := stringTag(s); tag != "" {
		if err := getValidator().Var(v, tag); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				return formatValidationError(fieldErrs[0])
			}
			return err.Error()
		}
	}
	if s.Pattern != nil && !s.Pattern.MatchString(v) {
		return "must match pattern " + s.Pattern.String()
	}
	return ""
}
