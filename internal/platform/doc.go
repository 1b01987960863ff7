// Package platform defines the guest/host platform service protocol: the
// window and display model, the transaction table and the wire layout of each
// message. Both the guest proxy and the reference host build on it.
package platform
