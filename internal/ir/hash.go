package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainImplementation = "stepnorm/implementation/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ImplementationID computes the content-addressed ID of a canonical record.
// canonical must come from MarshalCanonical; the ID is stable across
// processes given the same record.
func ImplementationID(canonical []byte) string {
	return hashWithDomain(DomainImplementation, canonical)
}
