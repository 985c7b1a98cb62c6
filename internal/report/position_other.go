//go:build !linux

package report

// positionWindow is a stub for non-Linux platforms.
func positionWindow(windowTitle string, width, height int) {}
