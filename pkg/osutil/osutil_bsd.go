// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build freebsd || netbsd || openbsd || darwin

package osutil

import (
	"os/exec"
)

func setPdeathsig(cmd *exec.Cmd) {
	setPgid(cmd)
}
