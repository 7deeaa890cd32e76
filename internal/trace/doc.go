// Package trace encodes command sequences and step records as canonical
// JSON and derives content hashes from them.
//
// Canonical JSON follows RFC 8785: object keys are ordered by UTF-16 code
// units, strings are NFC-normalized and written without HTML escaping, and
// floats and nulls are rejected. Token and wei amounts are encoded as
// decimal strings so no value is limited to 64 bits.
//
// The same sequence always encodes to the same bytes, which is what makes
// stored runs comparable and replayable.
package trace
