// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// Configuration keys, as spelled in buildenv.cfg. Lookup is case-insensitive.
const (
	KeyVenvFolder     = "venvFolder"
	KeyRequirements   = "requirements"
	KeyPrompt         = "prompt"
	KeyLookUp         = "lookUp"
	KeyPipInstallArgs = "pipInstallArgs"
	KeyManagerPackage = "managerPackage"
)

// Defaults for the known keys.
const (
	DefaultVenvFolder   = "venv"
	DefaultRequirements = "requirements.txt"
	DefaultPrompt       = "buildenv"
	DefaultLookUp       = "true"
)

// Settings are the typed values of the known keys.
type Settings struct {
	VenvFolder   string `toml:"venv_folder"`
	Requirements string `toml:"requirements"`
	Prompt       string `toml:"prompt"`
	LookUp       bool   `toml:"look_up"`
	// PipInstallArgs are the extra pip arguments, placeholders resolved and
	// split with POSIX shell quoting rules. Other dollar forms stay literal.
	PipInstallArgs []string `toml:"pip_install_args"`
	// ManagerPackage is an extra package installed with the base toolchain.
	// Empty by default.
	ManagerPackage string `toml:"manager_package,omitempty"`
}

// Settings reads every known key.
func (s *Store) Settings() (Settings, error) {
	var (
		out Settings
		err error
	)
	read := func(name, def string, resolve bool) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = s.Read(name, def, resolve)
		return v
	}

	out.VenvFolder = read(KeyVenvFolder, DefaultVenvFolder, false)
	out.Requirements = read(KeyRequirements, DefaultRequirements, false)
	out.Prompt = read(KeyPrompt, DefaultPrompt, false)
	lookUp := read(KeyLookUp, DefaultLookUp, false)
	pipArgs := read(KeyPipInstallArgs, "", true)
	out.ManagerPackage = read(KeyManagerPackage, "", false)
	if err != nil {
		return Settings{}, err
	}

	out.LookUp = ParseBool(lookUp)
	if out.PipInstallArgs, err = SplitArgs(pipArgs); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", KeyPipInstallArgs, err)
	}
	return out, nil
}

// SplitArgs splits an already resolved value into words with POSIX quoting
// rules. Nothing is expanded: "$NAME", "$(cmd)" and the like are kept as
// literal text.
func SplitArgs(value string) ([]string, error) {
	var words []*syntax.Word
	for w, err := range syntax.NewParser().WordsSeq(strings.NewReader(value)) {
		if err != nil {
			return nil, err
		}
		w.Parts = literalParts(value, w.Parts)
		words = append(words, w)
	}
	return expand.Fields(&expand.Config{Env: expand.ListEnviron()}, words...)
}

// literalEscaper escapes the characters a backslash protects both inside
// and outside double quotes.
var literalEscaper = strings.NewReplacer(`\`, `\\`, `$`, `\$`, "`", "\\`", `"`, `\"`)

// literalParts replaces every expansion in parts by its source text.
func literalParts(src string, parts []syntax.WordPart) []syntax.WordPart {
	out := make([]syntax.WordPart, 0, len(parts))
	for _, part := range parts {
		switch part := part.(type) {
		case *syntax.Lit, *syntax.SglQuoted:
			out = append(out, part)
		case *syntax.DblQuoted:
			part.Parts = literalParts(src, part.Parts)
			out = append(out, part)
		default:
			text := src[part.Pos().Offset():part.End().Offset()]
			out = append(out, &syntax.Lit{Value: literalEscaper.Replace(text)})
		}
	}
	return out
}

// ParseBool reads a configuration flag: "false", "0" and "" are false,
// anything else is true.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "":
		return false
	default:
		return true
	}
}
