package compose

import "fmt"

// Kind is the abstract fault taxonomy the engine raises — callers switch
// on Kind, never on a raw error string.
type Kind string

const (
	KindManifestInvalid Kind = "ManifestInvalid"
	KindUnknownTemplate  Kind = "UnknownTemplate"
	KindDependencyCycle  Kind = "DependencyCycle"
	KindNameCollision    Kind = "NameCollision"
	KindFilesystemFault  Kind = "FilesystemFault"
	KindPostVerifyFault  Kind = "PostVerifyFault"
	KindTimeout          Kind = "Timeout"
)

// Error is the structured fault every composition step raises. It always
// carries a machine kind, a human message, and — where applicable — the
// offending field path or template slug (the suggested next action is
// attached by the API layer, which knows the calling context).
type Error struct {
	Kind         Kind
	Message      string
	FieldPath    string
	TemplateSlug string
	Cause        error
}

func (e *Error) Error() string {
	if e.TemplateSlug != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.TemplateSlug)
	}
	if e.FieldPath != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.FieldPath)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}
