// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"os/exec"
	"syscall"
)

func setPdeathsig(cmd *exec.Cmd) {
	setPgid(cmd)
	// We will kill the whole process group.
	cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL
}
