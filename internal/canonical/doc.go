// Package canonical produces deterministic JSON for derived state.
//
// The encoding follows RFC 8785 (JSON Canonicalization Scheme):
//   - Object keys sorted by UTF-16 code units
//   - No insignificant whitespace
//   - No HTML escaping; only quote, backslash and C0 controls are escaped
//   - Strings NFC-normalized at the serialization boundary
//   - Numbers in the shortest form that round-trips (ECMAScript formatting)
//
// Unlike hashing-oriented IR encoders, floats are allowed: soil and capacity
// values are fractional and must survive storage and transit exactly.
// null is still rejected; optional fields are omitted instead.
package canonical
