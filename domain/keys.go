package domain

import (
	"fmt"
	"unicode/utf8"

	mh "github.com/multiformats/go-multihash"
)

// Base58Enc encodes an arbitrary string as a base58 identity multihash.
// The multihash framing carries a type/length tag so encoded values are
// self-describing and round-trip safely.
func Base58Enc(s string) string {
	sum, err := mh.Sum([]byte(s), mh.IDENTITY, -1)
	if err != nil {
		// Identity hashing of in-memory bytes cannot fail.
		panic(fmt.Sprintf("identity multihash: %v", err))
	}
	return sum.B58String()
}

// Base58Dec decodes a base58 identity multihash back to the original
// string. Non-identity hashes and non-UTF-8 digests are decode failures.
func Base58Dec(s string) (string, error) {
	raw, err := mh.FromB58String(s)
	if err != nil {
		return "", fmt.Errorf("base58 decode: %w", err)
	}
	decoded, err := mh.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("multihash decode: %w", err)
	}
	if decoded.Code != mh.IDENTITY {
		return "", fmt.Errorf("unexpected multihash code 0x%x", decoded.Code)
	}
	if !utf8.Valid(decoded.Digest) {
		return "", fmt.Errorf("decoded value is not valid UTF-8")
	}
	return string(decoded.Digest), nil
}

// UploadOrigKey derives the content-addressed store key for uploaded bytes:
// "D" followed by the base58 sha2-256 multihash of the data. The key is a
// pure function of the bytes, so repeated uploads are idempotent.
func UploadOrigKey(data []byte) string {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		panic(fmt.Sprintf("sha2-256 multihash: %v", err))
	}
	return "D" + sum.B58String()
}

// ProxyOrigKey derives the URL-addressed store key for a proxied remote
// image: "U" followed by the base58 sha1 multihash of the canonical URL
// string.
func ProxyOrigKey(canonicalURL string) string {
	sum, err := mh.Sum([]byte(canonicalURL), mh.SHA1, -1)
	if err != nil {
		panic(fmt.Sprintf("sha1 multihash: %v", err))
	}
	return "U" + sum.B58String()
}
