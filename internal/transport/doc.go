// Package transport binds the platform protocol to a request/reply channel.
// The production binding uses D-Bus: the host owns a well-known bus name and
// exports a single Transact method taking a transaction code and a parcel.
package transport
