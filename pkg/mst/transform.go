package mst

import (
	"fmt"
	"regexp"
	"strings"
)

var annotationPattern = regexp.MustCompile(`{{([_a-zA-Z0-9#^>/]+):.*?}}`)

// StripAnnotations removes `:schemaName:typeName` suffixes from tags so the
// text can be handed to a plain Mustache renderer.
func StripAnnotations(text string) string {
	return annotationPattern.ReplaceAllString(text, "{{$1}}")
}

const maxPartialDepth = 16

// ExpandPartials inlines `{{> name}}` references using the supplied partial
// texts. A standalone partial tag replaces its whole line and every non-empty
// line of the partial is prefixed with the tag's indentation. Unknown
// partials expand to nothing.
func ExpandPartials(text string, partials map[string]string) (string, error) {
	return expand(text, partials, 0)
}

func expand(text string, partials map[string]string, depth int) (string, error) {
	if !strings.Contains(text, ">") {
		return text, nil
	}
	if depth > maxPartialDepth {
		return "", fmt.Errorf("mst: partials nested deeper than %d levels", maxPartialDepth)
	}

	tokens, err := Parse(text)
	if err != nil {
		return "", err
	}

	var refs []Token
	Walk(tokens, func(tok Token) bool {
		if tok.Kind == KindPartial {
			refs = append(refs, tok)
		}
		return true
	})
	if len(refs) == 0 {
		return text, nil
	}

	var b strings.Builder
	cursor := 0
	for _, ref := range refs {
		body, err := expand(partials[ref.Name], partials, depth+1)
		if err != nil {
			return "", err
		}

		from, to := ref.Start, ref.End
		if ref.Standalone {
			from, to = lineBounds(text, ref.Start, ref.End)
			body = indentLines(body, ref.Indent)
		}
		if from < cursor {
			continue
		}
		b.WriteString(text[cursor:from])
		b.WriteString(body)
		cursor = to
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

func indentLines(body, indent string) string {
	if indent == "" || body == "" {
		return body
	}
	lines := strings.SplitAfter(body, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line != "" && line != "\n" {
			b.WriteString(indent)
		}
		b.WriteString(line)
	}
	return b.String()
}
