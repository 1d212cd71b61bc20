// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. A command returns it after writing its own report,
// for example the rendered Web eID error of a failed sign request.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this interface to
// distinguish a handled non-zero exit from an error to display.
func (e *ExitError) ExitCode() int {
	return e.Code
}
