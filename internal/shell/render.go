// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/natefinch/atomic"
	"mvdan.cc/sh/v3/syntax"

	"github.com/dynod/buildenv/internal/git"
	"github.com/dynod/buildenv/internal/platform"
)

const warningTemplate = "warning.tmpl"

//go:embed templates
var embedded embed.FS

type (
	// Job is one script to render.
	Job struct {
		// Template is an embedded template id ("posix/activate.sh") or an
		// absolute path read from disk.
		Template string
		Target   string
		// Executable sets the execute bits, and the git index bit when the
		// target is tracked project content.
		Executable bool
		Syntax     Syntax
		Data       map[string]any
	}

	// Renderer writes scripts from templates.
	Renderer struct {
		templates fs.FS
		git       *git.Client
		project   string
		untracked []string
	}

	// RendererOption configures a Renderer.
	RendererOption func(*Renderer)
)

// WithGitIndex makes executable scripts rendered under project also flagged
// executable in its git index, except below the untracked directories.
func WithGitIndex(client *git.Client, project string, untracked ...string) RendererOption {
	return func(r *Renderer) {
		r.git = client
		r.project = project
		r.untracked = untracked
	}
}

// NewRenderer returns a Renderer using the embedded templates.
func NewRenderer(opts ...RendererOption) *Renderer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	r := &Renderer{templates: sub}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes j.Target atomically, creating parent directories.
func (r *Renderer) Render(ctx context.Context, j Job) error {
	text, err := r.Text(j)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(j.Target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", j.Target, err)
	}
	if err := atomic.WriteFile(j.Target, strings.NewReader(text)); err != nil {
		return fmt.Errorf("failed to write %s: %w", j.Target, err)
	}

	mode := os.FileMode(0o644)
	if j.Executable {
		mode = 0o755
	}
	if err := os.Chmod(j.Target, mode); err != nil {
		return fmt.Errorf("failed to set mode of %s: %w", j.Target, err)
	}

	if j.Executable {
		r.markTracked(ctx, j.Target)
	}
	slog.Debug("rendered script", "template", j.Template, "target", j.Target)
	return nil
}

// Text renders j: the warning banner, a blank line, then the template, with
// the line endings of j.Syntax.
func (r *Renderer) Text(j Job) (string, error) {
	warning, err := r.load(warningTemplate)
	if err != nil {
		return "", err
	}
	body, err := r.load(j.Template)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(j.Template).
		Option("missingkey=error").
		Funcs(template.FuncMap{"quote": quote}).
		Parse(strings.TrimRight(warning, "\n") + "\n\n" + body)
	if err != nil {
		return "", fmt.Errorf("invalid template %s: %w", j.Template, err)
	}

	data := make(map[string]any, len(j.Data)+3)
	for k, v := range j.Data {
		data[k] = v
	}
	data["header"] = j.Syntax.Header
	data["comment"] = j.Syntax.CommentPrefix
	data["newline"] = j.Syntax.NewLine

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", j.Template, err)
	}
	return convertNewLines(out.String(), j.Syntax.NewLine), nil
}

func (r *Renderer) load(id string) (string, error) {
	var (
		b   []byte
		err error
	)
	if filepath.IsAbs(id) {
		b, err = os.ReadFile(id)
	} else {
		b, err = fs.ReadFile(r.templates, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load template %s: %w", id, err)
	}
	return string(b), nil
}

// markTracked flags target executable in the git index. The file mode on
// disk is already right: a failure only warns, an untracked file is left
// for its first commit.
func (r *Renderer) markTracked(ctx context.Context, target string) {
	if r.git == nil || r.project == "" {
		return
	}
	rel, ok := platform.RelativeTo(r.project, target)
	if !ok {
		return
	}
	for _, dir := range r.untracked {
		if platform.IsDescendant(dir, target) {
			return
		}
	}
	switch err := r.git.ChmodExecutable(ctx, r.project, rel); {
	case err == nil:
	case errors.Is(err, git.ErrNotTracked):
		slog.Debug("script not in git index yet", "path", rel)
	default:
		slog.Warn("failed to mark script executable in git index", "path", rel, "error", err)
	}
}

func quote(s string) (string, error) {
	return syntax.Quote(s, syntax.LangBash)
}

func convertNewLines(s, nl string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if nl == "" || nl == "\n" {
		return s
	}
	return strings.ReplaceAll(s, "\n", nl)
}
