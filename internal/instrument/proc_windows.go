//go:build windows

package instrument

import "os/exec"

// setProcessGroup keeps the default cancellation, which kills the step
// process only.
func setProcessGroup(cmd *exec.Cmd) {}
