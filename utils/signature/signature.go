// Package signature implements the secp256k1 signature scheme used for
// upload admission: compact recoverable signatures, graphene-style "STM"
// public key encoding, and WIF private key decoding.
package signature

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// PublicKeyPrefix tags serialized public keys on this chain.
const PublicKeyPrefix = "STM"

// uploadChallenge is prepended to upload bytes before hashing; signing the
// raw bytes directly would allow signature reuse across contexts.
const uploadChallenge = "ImageSigningChallenge"

// UploadChallengeDigest computes the digest an uploader must sign:
// sha256("ImageSigningChallenge" || data).
func UploadChallengeDigest(data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(uploadChallenge))
	h.Write(data)
	return h.Sum(nil)
}

// keyChecksum is the 4-byte ripemd160 checksum over the compressed key.
func keyChecksum(key []byte) []byte {
	h := ripemd160.New()
	h.Write(key)
	return h.Sum(nil)[:4]
}

// ParsePublicKey decodes an "STM..."-encoded compressed public key.
func ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	if !strings.HasPrefix(s, PublicKeyPrefix) {
		return nil, fmt.Errorf("public key missing %s prefix", PublicKeyPrefix)
	}
	raw, err := base58.Decode(s[len(PublicKeyPrefix):])
	if err != nil {
		return nil, fmt.Errorf("public key base58: %w", err)
	}
	if len(raw) != 37 {
		return nil, fmt.Errorf("public key length %d, want 37", len(raw))
	}
	key, checksum := raw[:33], raw[33:]
	if !bytes.Equal(checksum, keyChecksum(key)) {
		return nil, fmt.Errorf("public key checksum mismatch")
	}
	return secp256k1.ParsePubKey(key)
}

// FormatPublicKey encodes a public key in the "STM..." form used by
// account authorities.
func FormatPublicKey(pub *secp256k1.PublicKey) string {
	key := pub.SerializeCompressed()
	return PublicKeyPrefix + base58.Encode(append(key, keyChecksum(key)...))
}

// ParseWIF decodes a WIF-encoded private key (0x80 version byte, double
// sha256 checksum, no compression flag).
func ParseWIF(wif string) (*secp256k1.PrivateKey, error) {
	raw, err := base58.Decode(wif)
	if err != nil {
		return nil, fmt.Errorf("wif base58: %w", err)
	}
	if len(raw) != 37 {
		return nil, fmt.Errorf("wif length %d, want 37", len(raw))
	}
	if raw[0] != 0x80 {
		return nil, fmt.Errorf("wif version byte 0x%x, want 0x80", raw[0])
	}
	payload, checksum := raw[:33], raw[33:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(checksum, second[:4]) {
		return nil, fmt.Errorf("wif checksum mismatch")
	}
	return secp256k1.PrivKeyFromBytes(payload[1:]), nil
}

// FormatWIF encodes a private key in WIF form.
func FormatWIF(priv *secp256k1.PrivateKey) string {
	payload := append([]byte{0x80}, priv.Serialize()...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(payload, second[:4]...))
}

// DecodeSignature decodes a hex-encoded 65-byte compact recoverable
// signature.
func DecodeSignature(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("signature hex: %w", err)
	}
	if len(raw) != 65 {
		return nil, fmt.Errorf("signature length %d, want 65", len(raw))
	}
	return raw, nil
}

// RecoverPublicKey recovers the signer's public key from a compact
// recoverable signature over digest.
func RecoverPublicKey(sig []byte, digest []byte) (*secp256k1.PublicKey, error) {
	pub, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return nil, fmt.Errorf("recover compact: %w", err)
	}
	return pub, nil
}

// Verify reports whether sig over digest was produced by the key encoded
// as publicKey.
func Verify(publicKey string, sig []byte, digest []byte) bool {
	expected, err := ParsePublicKey(publicKey)
	if err != nil {
		return false
	}
	recovered, err := RecoverPublicKey(sig, digest)
	if err != nil {
		return false
	}
	return recovered.IsEqual(expected)
}

// Sign produces a hex-encoded compact recoverable signature over digest.
func Sign(priv *secp256k1.PrivateKey, digest []byte) string {
	return hex.EncodeToString(ecdsa.SignCompact(priv, digest, true))
}
