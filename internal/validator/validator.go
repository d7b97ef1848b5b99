package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
)

const (
	maxNoteTags   = 20
	maxNoteTagLen = 50
)

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the service's custom rules
type Validator struct {
	validate      *validator.Validate
	embeddingDims int
}

type Option func(*Validator)

// WithEmbeddingDimensions sets the length the "embedding" rule requires
func WithEmbeddingDimensions(dims int) Option {
	return func(v *Validator) {
		if dims > 0 {
			v.embeddingDims = dims
		}
	}
}

// New creates a validator with all custom rules registered
func New(opts ...Option) *Validator {
	v := &Validator{
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		embeddingDims: facematch.DefaultDimensions,
	}
	for _, opt := range opts {
		opt(v)
	}

	// Report json field names
	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	v.registerRules()

	return v
}

func (v *Validator) EmbeddingDimensions() int {
	return v.embeddingDims
}

// Validate returns nil when s passes every rule
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateEmbedding checks a raw embedding against the configured dimensions
func (v *Validator) ValidateEmbedding(embedding facematch.Embedding) error {
	if err := facematch.ValidateEmbedding(embedding, v.embeddingDims); err != nil {
		return ValidationErrors{{
			Field:   "embedding",
			Message: err.Error(),
			Rule:    "embedding",
		}}
	}
	return nil
}

// ToValidationErrors converts validator errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		ve := ValidationError{
			Field:   fieldPath(fe),
			Message: errorMessage(fe),
			Rule:    fe.Tag(),
		}
		// Large values such as embeddings and secrets are left out of the report
		if fe.Kind() != reflect.Slice && !isSecretField(fe.Field()) {
			ve.Value = fe.Value()
		}
		out = append(out, ve)
	}
	return out
}

func isSecretField(name string) bool {
	return strings.Contains(strings.ToLower(name), "password")
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func (v *Validator) registerRules() {
	// Face embedding: configured length, finite values
	v.validate.RegisterValidation("embedding", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}

		embedding := make(facematch.Embedding, field.Len())
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			switch elem.Kind() {
			case reflect.Float32, reflect.Float64:
				embedding[i] = elem.Float()
			default:
				return false
			}
		}

		return facematch.ValidateEmbedding(embedding, v.embeddingDims) == nil
	})

	// Note tags: at most 20 unique, non-blank tags of up to 50 characters
	v.validate.RegisterValidation("note_tags", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		if field.Len() > maxNoteTags {
			return false
		}

		seen := make(map[string]struct{}, field.Len())
		for i := 0; i < field.Len(); i++ {
			tag := strings.TrimSpace(field.Index(i).String())
			if tag == "" || len([]rune(tag)) > maxNoteTagLen {
				return false
			}
			key := strings.ToLower(tag)
			if _, dup := seen[key]; dup {
				return false
			}
			seen[key] = struct{}{}
		}
		return true
	})

	// Quiz score must lie within the number of questions
	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(SaveQuizResultRequest)
		if req.Score == nil {
			return
		}
		if *req.Score < 0 || *req.Score > len(req.Questions) {
			sl.ReportError(*req.Score, "score", "Score", "quiz_score", fmt.Sprintf("%d", len(req.Questions)))
		}
	}, SaveQuizResultRequest{})
}

// errorMessage returns user-friendly error messages
func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "embedding":
		return "must be a list of finite numbers with the expected face embedding length"
	case "note_tags":
		return fmt.Sprintf("must be at most %d unique, non-empty tags of up to %d characters", maxNoteTags, maxNoteTagLen)
	case "nefield":
		return fmt.Sprintf("must differ from %s", fe.Param())
	case "quiz_score":
		return fmt.Sprintf("must be between 0 and %s", fe.Param())
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
