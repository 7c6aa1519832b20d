// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dynod/buildenv/internal/backend"
	"github.com/dynod/buildenv/internal/config"
	"github.com/dynod/buildenv/internal/shell"
	"github.com/dynod/buildenv/internal/venv"
)

type (
	// infoReport is the TOML document printed by "buildenv info".
	infoReport struct {
		Project     string          `toml:"project"`
		CI          bool            `toml:"ci"`
		Python      string          `toml:"python,omitempty"`
		Backend     backend.Variant `toml:"backend"`
		Shell       *shellInfo      `toml:"shell,omitempty"`
		Environment venv.Descriptor `toml:"environment"`
		Settings    config.Settings `toml:"settings"`
	}

	shellInfo struct {
		Kind shell.Kind `toml:"kind"`
		Path string     `toml:"path"`
	}
)

func newInfoCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the detected environment as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.info(cmd.Context())
			if err != nil {
				return describe("inspect environment", "", err)
			}
			return toml.NewEncoder(a.stdout).SetIndentTables(true).Encode(report)
		},
	}
}

func (a *App) info(ctx context.Context) (infoReport, error) {
	project, err := a.projectPath()
	if err != nil {
		return infoReport{}, err
	}
	store := config.New(project, a.configOptions()...)
	settings, err := store.Settings()
	if err != nil {
		return infoReport{}, err
	}
	env, err := a.environment(ctx, project, false)
	if err != nil {
		return infoReport{}, err
	}

	name, err := backend.Classify(project, env.Root)
	if err != nil {
		return infoReport{}, err
	}
	variant, err := backend.Lookup(name)
	if err != nil {
		return infoReport{}, err
	}

	report := infoReport{
		Project:     project,
		CI:          store.IsCI(),
		Backend:     variant,
		Environment: env,
		Settings:    settings,
	}
	if marker, err := venv.ReadMarker(env.Root); err == nil {
		report.Python = marker.Version()
	}
	if sh, err := shell.Detect(a.signals()); err == nil {
		report.Shell = &shellInfo{Kind: sh.Kind(), Path: sh.Path()}
	}
	return report, nil
}
