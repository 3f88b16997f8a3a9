// Package wire implements the service's on-the-wire framing and the
// four protocol-buffer-shaped request/response messages described in
// spec.md §6:
//
//	frame := u8 type | u32 length (LE) | payload[length]
//
// Payloads are encoded with google.golang.org/protobuf's low-level
// protowire primitives rather than generated message bindings, since
// the four shapes (PutRequest, PutResponse, GetRequest, GetResponse)
// are fixed, flat, and small enough that hand-written field encode/decode
// is simpler than carrying a .proto/codegen step for them.
package wire
