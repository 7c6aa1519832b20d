// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"path/filepath"

	"github.com/dynod/buildenv/internal/platform"
	"github.com/dynod/buildenv/internal/venv"
)

// InstallActivationLoop turns the activate scripts of d into loops over its
// activation folder, the stock scripts becoming the first fragments.
func InstallActivationLoop(ctx context.Context, r *Renderer, d venv.Descriptor) error {
	moved, err := venv.RelocateActivation(d)
	if err != nil {
		return err
	}

	for _, m := range moved {
		tmpl := "venv/activate.sh"
		if filepath.Ext(m.Fragment) == ".bat" {
			tmpl = "venv/activate.bat"
		}
		err := r.Render(ctx, Job{
			Template: tmpl,
			Target:   m.Original,
			Syntax:   SyntaxFor(m.Fragment),
			Data:     map[string]any{"fragments": platform.ToSlashPath(d.ActivationScripts)},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
