package migrations

import (
	"bytes"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"
)

// templateData is substituted into migration templates.
// Both fields are already quoted for the target dialect.
type templateData struct {
	Table string
	Index string
}

// renderAll renders every .sql template under dir in lexical order.
func renderAll(fsys fs.FS, dir string, data templateData) ([]renderedMigration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	out := make([]renderedMigration, 0, len(files))
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}

		tmpl, err := template.New(file).Option("missingkey=error").Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", file, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render migration %s: %w", file, err)
		}
		out = append(out, renderedMigration{name: file, sql: buf.String()})
	}

	return out, nil
}

type renderedMigration struct {
	name string
	sql  string
}
