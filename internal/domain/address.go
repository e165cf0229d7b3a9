package domain

import "encoding/binary"

// Address identifies a principal or a record on the ledger.
type Address string

// Namespaces used as the first seed when deriving record addresses.
const (
	NamespaceProtocol   = "protocol"
	NamespaceCollege    = "college"
	NamespaceCollection = "collection"
)

// TenantKey encodes a tenant id as the derivation key for its record.
func TenantKey(id TenantID) []byte {
	return binary.LittleEndian.AppendUint16(nil, uint16(id))
}

// CollectionKey encodes the derivation key of the collection stored at
// position within a tenant's collection list.
func CollectionKey(id TenantID, position int) []byte {
	return append(TenantKey(id), byte(position))
}

// SignerSeeds are the derivation inputs of a record address. Presenting them
// proves authority over the derived address without a personal key.
type SignerSeeds struct {
	Namespace string
	Key       []byte
	Bump      uint8
}

// Signer is the authority attached to a transfer. Seeds is nil when a person
// signs; it is set when a derived record signs for itself.
type Signer struct {
	Address Address
	Seeds   *SignerSeeds
}

// SignedBy returns a signer for a personal identity.
func SignedBy(addr Address) Signer {
	return Signer{Address: addr}
}

// IsRecord reports whether the signer is a derived record rather than a person.
func (s Signer) IsRecord() bool {
	return s.Seeds != nil
}
