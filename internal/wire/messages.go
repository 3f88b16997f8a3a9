package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the four message shapes. Kept private: callers only
// ever see the typed Go structs below, never raw field numbers.
const (
	fieldRequestID protowire.Number = 1
	fieldKey       protowire.Number = 2
	fieldValue     protowire.Number = 3
	// GetResponse reuses field 2 for its value, since it has no key.
	fieldGetResponseValue protowire.Number = 2
)

// PutRequest is the type=1 payload: store value under key.
type PutRequest struct {
	RequestID uint64
	Key       string
	Value     uint64
}

// Marshal encodes p as a protobuf-wire-format payload.
func (p PutRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldRequestID, protowire.VarintType)
	b = protowire.AppendVarint(b, p.RequestID)
	b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
	b = protowire.AppendString(b, p.Key)
	b = protowire.AppendTag(b, fieldValue, protowire.VarintType)
	b = protowire.AppendVarint(b, p.Value)
	return b
}

// UnmarshalPutRequest decodes a type=1 payload.
func UnmarshalPutRequest(b []byte) (PutRequest, error) {
	var p PutRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("wire: PutRequest: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldRequestID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("wire: PutRequest: bad request_id: %w", protowire.ParseError(n))
			}
			p.RequestID = v
			b = b[n:]
		case fieldKey:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return p, fmt.Errorf("wire: PutRequest: bad key: %w", protowire.ParseError(n))
			}
			p.Key = v
			b = b[n:]
		case fieldValue:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("wire: PutRequest: bad value: %w", protowire.ParseError(n))
			}
			p.Value = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("wire: PutRequest: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

// PutResponse is the type=2 payload: acknowledges a PutRequest.
type PutResponse struct {
	RequestID uint64
}

func (p PutResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldRequestID, protowire.VarintType)
	b = protowire.AppendVarint(b, p.RequestID)
	return b
}

func UnmarshalPutResponse(b []byte) (PutResponse, error) {
	var p PutResponse
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("wire: PutResponse: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldRequestID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("wire: PutResponse: bad request_id: %w", protowire.ParseError(n))
			}
			p.RequestID = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("wire: PutResponse: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

// GetRequest is the type=3 payload: look up key.
type GetRequest struct {
	RequestID uint64
	Key       string
}

func (g GetRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldRequestID, protowire.VarintType)
	b = protowire.AppendVarint(b, g.RequestID)
	b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
	b = protowire.AppendString(b, g.Key)
	return b
}

func UnmarshalGetRequest(b []byte) (GetRequest, error) {
	var g GetRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return g, fmt.Errorf("wire: GetRequest: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldRequestID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return g, fmt.Errorf("wire: GetRequest: bad request_id: %w", protowire.ParseError(n))
			}
			g.RequestID = v
			b = b[n:]
		case fieldKey:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return g, fmt.Errorf("wire: GetRequest: bad key: %w", protowire.ParseError(n))
			}
			g.Key = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return g, fmt.Errorf("wire: GetRequest: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return g, nil
}

// GetResponse is the type=4 payload: the value for a GetRequest's key,
// or 0 if absent.
type GetResponse struct {
	RequestID uint64
	Value     uint64
}

func (g GetResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldRequestID, protowire.VarintType)
	b = protowire.AppendVarint(b, g.RequestID)
	b = protowire.AppendTag(b, fieldGetResponseValue, protowire.VarintType)
	b = protowire.AppendVarint(b, g.Value)
	return b
}

func UnmarshalGetResponse(b []byte) (GetResponse, error) {
	var g GetResponse
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return g, fmt.Errorf("wire: GetResponse: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldRequestID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return g, fmt.Errorf("wire: GetResponse: bad request_id: %w", protowire.ParseError(n))
			}
			g.RequestID = v
			b = b[n:]
		case fieldGetResponseValue:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return g, fmt.Errorf("wire: GetResponse: bad value: %w", protowire.ParseError(n))
			}
			g.Value = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return g, fmt.Errorf("wire: GetResponse: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return g, nil
}
