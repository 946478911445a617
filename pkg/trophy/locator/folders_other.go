//go:build !windows

package locator

// NativeFolders is empty off windows: cracks only write inside wine
// prefixes there.
func NativeFolders() Folders {
	return Folders{}
}
