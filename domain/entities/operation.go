package entities

import "fmt"

// ProtocolVersion selects one of the two extension call shapes. The versions are
// not interoperable: a guest and a host must agree on one before any call.
type ProtocolVersion uint32

const (
	// ProtocolV1 exposes a single operation with a binary success/failure status.
	ProtocolV1 ProtocolVersion = 1

	// ProtocolV2 exposes two operations with a three-way failure code.
	// This is the canonical version.
	ProtocolV2 ProtocolVersion = 2
)

// DefaultProtocol is the version used when nothing is configured.
const DefaultProtocol = ProtocolV2

// Valid reports whether v is a known protocol version.
func (v ProtocolVersion) Valid() bool {
	return v == ProtocolV1 || v == ProtocolV2
}

func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolV1:
		return "v1"
	case ProtocolV2:
		return "v2"
	default:
		return fmt.Sprintf("v?(%d)", uint32(v))
	}
}

// ParseProtocolVersion parses "v1"/"v2" (or "1"/"2").
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch s {
	case "v1", "1":
		return ProtocolV1, nil
	case "v2", "2":
		return ProtocolV2, nil
	default:
		return 0, fmt.Errorf("unknown protocol version %q", s)
	}
}

// OperationID selects the remote action a dispatch call invokes.
type OperationID uint32

// Operation ids of ProtocolV2.
const (
	OpCurrentDataID         OperationID = 1
	OpRequestedOffchainData OperationID = 2
)

// Operation ids of ProtocolV1.
const (
	OpV1RequestedOffchainData OperationID = 1
)

// Operations returns the closed set of operation ids defined by v, in ascending order.
func (v ProtocolVersion) Operations() []OperationID {
	switch v {
	case ProtocolV1:
		return []OperationID{OpV1RequestedOffchainData}
	case ProtocolV2:
		return []OperationID{OpCurrentDataID, OpRequestedOffchainData}
	default:
		return nil
	}
}

// Supports reports whether op belongs to the closed operation set of v.
func (v ProtocolVersion) Supports(op OperationID) bool {
	for _, known := range v.Operations() {
		if known == op {
			return true
		}
	}
	return false
}

// PayloadOperation returns the id of "fetch payload for identifier" in v.
func (v ProtocolVersion) PayloadOperation() (OperationID, bool) {
	switch v {
	case ProtocolV1:
		return OpV1RequestedOffchainData, true
	case ProtocolV2:
		return OpRequestedOffchainData, true
	default:
		return 0, false
	}
}

// CurrentIDOperation returns the id of "fetch current identifier" in v.
// ProtocolV1 has no such operation.
func (v ProtocolVersion) CurrentIDOperation() (OperationID, bool) {
	if v == ProtocolV2 {
		return OpCurrentDataID, true
	}
	return 0, false
}

// OperationName returns a stable label for op under v, used in logs and metrics.
func (v ProtocolVersion) OperationName(op OperationID) string {
	switch {
	case v == ProtocolV2 && op == OpCurrentDataID:
		return "current_data_id"
	case v == ProtocolV2 && op == OpRequestedOffchainData,
		v == ProtocolV1 && op == OpV1RequestedOffchainData:
		return "requested_offchain_data"
	default:
		return fmt.Sprintf("op_%d", uint32(op))
	}
}

// DataID identifies a piece of off-chain data. It is assigned by the off-chain
// source and carries no ordering guarantee.
type DataID = uint64
