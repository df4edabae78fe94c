package exception

import "strings"

const (
	causePhrase   = "\nThe above exception was the direct cause of the following exception:\n\n"
	contextPhrase = "\nDuring handling of the above exception, another exception occurred:\n\n"
	tracebackHead = "Traceback (most recent call last):\n"
)

// Format renders the exception with its chain, tracebacks and notes.
// Chained exceptions are written first.
func (e *Exception) Format() string {
	var sb strings.Builder
	e.format(&sb, map[*Exception]bool{})
	return sb.String()
}

func (e *Exception) format(sb *strings.Builder, seen map[*Exception]bool) {
	seen[e] = true
	switch {
	case e.Cause != nil:
		if !seen[e.Cause] {
			e.Cause.format(sb, seen)
			sb.WriteString(causePhrase)
		}
	case e.Context != nil && !e.SuppressContext:
		if !seen[e.Context] {
			e.Context.format(sb, seen)
			sb.WriteString(contextPhrase)
		}
	}
	if len(e.Traceback) > 0 {
		sb.WriteString(tracebackHead)
		for _, frame := range e.Traceback {
			sb.WriteString(frame.String())
		}
	}
	sb.WriteString(e.Error())
	for _, note := range e.Notes {
		sb.WriteString("\n")
		sb.WriteString(note)
	}
	sb.WriteString("\n")
}
