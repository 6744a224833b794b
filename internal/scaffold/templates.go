package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// renderDocument produces the content for a document: the first template
// found on the search path, rendered with project and phase context, or a
// minimal built-in fallback when no template exists. Template resolution
// failures degrade to the fallback; scaffolding never blocks on a template.
func (s *Scaffolder) renderDocument(doc, phaseName string, extra map[string]string) string {
	tmpl, ok := s.findTemplate(templateName(doc))
	if !ok {
		return s.fallbackDocument(doc, phaseName)
	}
	return s.render(tmpl, phaseName, extra)
}

// templateName maps a document file name to its template file name
// (SPEC.md -> spec.md).
func templateName(doc string) string {
	return strings.ToLower(doc)
}

// findTemplate searches the ordered template directories for a template file.
// The first existing file wins; project-local overrides bundled.
func (s *Scaffolder) findTemplate(name string) (string, bool) {
	for _, dir := range s.config.TemplateDirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return string(data), true
	}
	return "", false
}

// render substitutes template tokens. The placeholder grammar is consumed
// here, not defined: tokens are {{key}} with simple string replacement.
func (s *Scaffolder) render(tmpl, phaseName string, extra map[string]string) string {
	pairs := []string{
		"{{project_name}}", s.config.ProjectName,
		"{{phase_name}}", phaseName,
	}
	for k, v := range extra {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// fallbackDocument is the built-in minimal document used when no template
// can be found.
func (s *Scaffolder) fallbackDocument(doc, phaseName string) string {
	title := strings.TrimSuffix(doc, filepath.Ext(doc))
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if s.config.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", s.config.ProjectName)
	}
	fmt.Fprintf(&b, "Phase: %s\n\n", phaseName)
	b.WriteString("_No template was found for this document; fill it in as the phase progresses._\n")
	return b.String()
}
