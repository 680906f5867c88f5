//go:build unix

package preflight

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// minFileDescriptors covers captured pipes for a few tools plus log,
// report and history files.
const minFileDescriptors = 256

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	actual := int(limit.Cur)
	if limit.Cur > 1<<30 {
		actual = 1 << 30
	}

	return Check{
		Name:     "file_descriptors",
		Required: minFileDescriptors,
		Actual:   actual,
		Passed:   actual >= minFileDescriptors,
	}
}
