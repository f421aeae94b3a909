package items

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mmenanno/inventory-browser/internal/constants"
)

// FieldError describes a single invalid field in a create payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a create payload is rejected
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a decoded JSON create payload. Name and category are
// trimmed and the price is rounded to two decimals.
func Validate(raw map[string]any) (NewItem, error) {
	verr := &ValidationError{}
	var item NewItem

	item.Name = validateText(verr, raw, "name", constants.MaxNameLength)
	item.Category = validateText(verr, raw, "category", constants.MaxCategoryLength)

	switch price := raw["price"].(type) {
	case nil:
		verr.add("price", "is required")
	case float64:
		if price < 0 {
			verr.add("price", "must not be negative")
		} else if price > constants.MaxPrice {
			verr.add("price", "must not exceed %d", constants.MaxPrice)
		} else {
			item.Price = RoundPrice(price)
		}
	default:
		verr.add("price", "must be a number")
	}

	if len(verr.Fields) > 0 {
		return NewItem{}, verr
	}
	return item, nil
}

func validateText(verr *ValidationError, raw map[string]any, field string, maxLen int) string {
	value, present := raw[field]
	if !present || value == nil {
		verr.add(field, "is required")
		return ""
	}

	s, ok := value.(string)
	if !ok {
		verr.add(field, "must be a string")
		return ""
	}

	s = strings.TrimSpace(s)
	if s == "" {
		verr.add(field, "must not be empty")
		return ""
	}
	if utf8.RuneCountInString(s) > maxLen {
		verr.add(field, "must be at most %d characters", maxLen)
		return ""
	}
	return s
}

// RoundPrice rounds a price to two decimal places
func RoundPrice(price float64) float64 {
	scale := math.Pow(10, constants.PriceDecimals)
	return math.Round(price*scale) / scale
}
