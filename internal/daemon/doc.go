// Package daemon provides the main orchestration for hostsyncd.
// It connects the proxy to the host platform service, feeds it window
// state from the compositor state file, runs the clipboard bridge and
// applies configuration hot-reloads.
package daemon
