// Package identity resolves the comparison keys that match publishers and
// subscribers to the same logical event or state.
//
// Two kinds of identity exist:
//
//   - Static: assigned once from a random 128-bit id when a descriptor is
//     declared. Only copies of that descriptor share the identity.
//   - Keyed: derived from the descriptor label and a key value. Independently
//     constructed descriptors with equal labels and equal key fields resolve to
//     the same identity.
//
// # Key fields
//
// A keyed descriptor takes an arbitrary key value. When the key is a struct
// (or a pointer to one) and some of its fields carry a `key` tag, only those
// fields participate in the identity; every other field is ignored:
//
//	type Room struct {
//	    ID    int    `key:"id"`
//	    Title string // display only, never part of the identity
//	}
//
// Keys without tagged fields participate as a whole.
//
// Every part of a key that takes part must be visible to the encoder.
// Unexported struct fields, whether in the key itself, in a tagged field or
// nested in slices, maps and pointers, make Derive fail with
// ErrUnexportedKeyField, since the encoder would skip them and keys differing
// only there would share an identity. Fields tagged `cbor:"-"` are excluded
// on purpose and not checked.
//
// The key is encoded with the CBOR core deterministic encoding and hashed into
// a name-based (SHA-1) UUID. Keys must encode deterministically: tagged fields
// holding funcs, channels or values whose encoding depends on pointer identity
// are a precondition violation and make Derive fail.
package identity
