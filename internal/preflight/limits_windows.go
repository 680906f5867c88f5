//go:build windows

package preflight

// checkFileDescriptors has no equivalent limit on Windows.
func checkFileDescriptors() Check {
	return Check{
		Name:    "file_descriptors",
		Passed:  true,
		Message: "not limited on windows",
	}
}
