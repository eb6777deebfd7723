package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var systemNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]+$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func sharedValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("systemname", func(fl validator.FieldLevel) bool {
			return systemNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// FieldError names one manifest field that failed validation, in the shape
// the control plane API flattens into a 422 response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every FieldError found in one manifest so the
// API can report them all at once rather than stopping at the first.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "manifest invalid: " + strings.Join(parts, "; ")
}

// Validate checks m against the manifest schema (struct tags) and the
// one domain rule that goes beyond what tags can express: ai_agents
// instance-name uniqueness after defaulting.
func Validate(m *Manifest) error {
	var fieldErrors []FieldError
	if err := sharedValidator().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fieldErrors = append(fieldErrors, FieldError{
					Field:   jsonFieldPath(fe),
					Message: describeTag(fe),
				})
			}
		} else {
			fieldErrors = append(fieldErrors, FieldError{Field: "", Message: err.Error()})
		}
	}
	fieldErrors = append(fieldErrors, duplicateInstanceNames(m)...)
	if len(fieldErrors) == 0 {
		return nil
	}
	sort.Slice(fieldErrors, func(i, j int) bool { return fieldErrors[i].Field < fieldErrors[j].Field })
	return &ValidationError{Errors: fieldErrors}
}

// duplicateInstanceNames enforces uniqueness of ai_agents[*].instance_name
// after defaulting to template.
func duplicateInstanceNames(m *Manifest) []FieldError {
	seen := make(map[string]int, len(m.Components.AIAgents))
	var errs []FieldError
	for i, agent := range m.Components.AIAgents {
		name := agent.EffectiveInstanceName()
		if first, ok := seen[name]; ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("components.ai_agents[%d].instance_name", i),
				Message: fmt.Sprintf("duplicates instance_name %q also used by components.ai_agents[%d]", name, first),
			})
			continue
		}
		seen[name] = i
	}
	return errs
}

// jsonFieldPath converts a validator.FieldError's dotted struct-field path
// into the manifest's JSON field path (lower_snake, matching the wire
// shape clients actually send).
func jsonFieldPath(fe validator.FieldError) string {
	segments := strings.Split(fe.Namespace(), ".")
	// Namespace's first segment is the root struct name; drop it.
	if len(segments) > 1 {
		segments = segments[1:]
	}
	for i, seg := range segments {
		segments[i] = toSnakeSegment(seg)
	}
	return strings.Join(segments, ".")
}

func toSnakeSegment(seg string) string {
	suffix := ""
	if idx := strings.Index(seg, "["); idx >= 0 {
		suffix = seg[idx:]
		seg = seg[:idx]
	}
	return snakeSegmentName(seg) + suffix
}

func snakeSegmentName(seg string) string {
	switch seg {
	case "ManifestVersion":
		return "manifest_version"
	case "SystemName":
		return "system_name"
	case "Org":
		return "org"
	case "Description":
		return "description"
	case "Components":
		return "components"
	case "Backend":
		return "backend"
	case "Frontend":
		return "frontend"
	case "AIAgents":
		return "ai_agents"
	case "Business":
		return "business"
	case "Infrastructure":
		return "infrastructure"
	case "Governance":
		return "governance"
	case "Template":
		return "template"
	case "InstanceName":
		return "instance_name"
	case "Memory":
		return "memory"
	case "TTLSeconds":
		return "ttl_seconds"
	default:
		return seg
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "eq":
		return fmt.Sprintf("must equal %q", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "systemname":
		return "must match ^[a-z][a-z0-9-]+$"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
