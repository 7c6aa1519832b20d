// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for buildenv.

Shells opened by the loader scripts load the bash completion already. For
other shells:

` + SubtitleStyle.Render("Bash:") + `
  source <(buildenv completion bash)

` + SubtitleStyle.Render("Zsh:") + `
  buildenv completion zsh > "${fpath[1]}/_buildenv"

` + SubtitleStyle.Render("Fish:") + `
  buildenv completion fish > ~/.config/fish/completions/buildenv.fish

` + SubtitleStyle.Render("PowerShell:") + `
  buildenv completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := cmd.Root()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}
