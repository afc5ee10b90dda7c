package clr

import "fmt"

// Warning is one recoverable diagnostic raised while decoding an image.
// It mirrors dnfile's own add_warning()/get_warnings() pair: a message
// plus enough context to find where it happened.
type Warning struct {
	Kind    ErrorKind
	Context string
	Message string
}

func (w Warning) String() string {
	if w.Context == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Context, w.Message)
}

// DiagnosticSink receives recoverable-error notifications during parsing.
// The parser never aborts the whole parse for these; it degrades the
// offending field to absent and keeps going.
type DiagnosticSink interface {
	Warnf(kind ErrorKind, context, format string, args ...any)
}

// memorySink is the default DiagnosticSink: it appends every warning to
// an in-memory slice, retrievable via Warnings().
type memorySink struct {
	warnings []Warning
}

func newMemorySink() *memorySink {
	return &memorySink{}
}

func (s *memorySink) Warnf(kind ErrorKind, context, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{
		Kind:    kind,
		Context: context,
		Message: fmt.Sprintf(format, args...),
	})
}
