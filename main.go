// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/dynod/buildenv/cmd/buildenv"

func main() {
	cmd.Execute()
}
