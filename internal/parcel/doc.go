// Package parcel implements the positional binary encoding shared by every
// platform service transaction. Values carry no type tags; the reader must
// consume fields in exactly the order the writer produced them.
package parcel
