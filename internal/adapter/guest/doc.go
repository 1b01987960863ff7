// Package guest adapts the guest desktop to the proxy.
//
// StateFile exposes the compositor's window list, published as a YAML
// document, as a proxy.WindowManager and reports windows that disappear
// between reloads. CommandClipboard reads and writes the guest clipboard
// through the usual command line tools.
package guest
