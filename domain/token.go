package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// tokenTypes are the signed-message types accepted from OAuth tokens.
var tokenTypes = map[string]bool{
	"login":   true,
	"posting": true,
	"offline": true,
	"code":    true,
	"refresh": true,
}

// SignedMessage is the typed view of the token's signed_message document.
type SignedMessage struct {
	Type string `json:"type"`
	App  string `json:"app"`
}

// UploadToken is a decoded OAuth-style upload token: a signed JSON payload
// naming its authors and carrying their signatures. The raw signed_message
// and timestamp bytes are preserved so the signing digest is computed over
// exactly what was signed.
type UploadToken struct {
	SignedMessage json.RawMessage `json:"signed_message"`
	Authors       []string        `json:"authors"`
	Signatures    []string        `json:"signatures"`
	Timestamp     json.RawMessage `json:"timestamp"`
	Message       SignedMessage   `json:"-"`
}

// DecodeUploadToken decodes a base64url token using the historical glyph
// map ('_'->'/', '-'->'+', '.'->'=') and validates its shape.
func DecodeUploadToken(token string) (*UploadToken, error) {
	mapped := strings.NewReplacer("_", "/", "-", "+", ".", "=").Replace(token)
	raw, err := base64.StdEncoding.DecodeString(mapped)
	if err != nil {
		return nil, WrapError(KindInvalidSignature, fmt.Errorf("token base64: %w", err))
	}

	var t UploadToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, WrapError(KindInvalidSignature, fmt.Errorf("token json: %w", err))
	}
	if err := json.Unmarshal(t.SignedMessage, &t.Message); err != nil {
		return nil, WrapError(KindInvalidSignature, fmt.Errorf("signed_message: %w", err))
	}
	if !tokenTypes[t.Message.Type] {
		return nil, ErrorWithInfo(KindInvalidSignature, map[string]any{"reason": "invalid message type"})
	}
	if t.Message.App == "" {
		return nil, ErrorWithInfo(KindInvalidSignature, map[string]any{"reason": "missing app"})
	}
	if len(t.Authors) == 0 || len(t.Signatures) == 0 {
		return nil, ErrorWithInfo(KindInvalidSignature, map[string]any{"reason": "missing authors or signatures"})
	}
	return &t, nil
}

// SigningDigest computes sha256 over the canonical JSON of
// {signed_message, authors, timestamp}, reusing the raw bytes of the
// signed_message and timestamp exactly as they were transmitted.
func (t *UploadToken) SigningDigest() ([]byte, error) {
	authors, err := json.Marshal(t.Authors)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"signed_message":`)
	buf.Write(bytes.TrimSpace(t.SignedMessage))
	buf.WriteString(`,"authors":`)
	buf.Write(authors)
	buf.WriteString(`,"timestamp":`)
	buf.Write(bytes.TrimSpace(t.Timestamp))
	buf.WriteString(`}`)
	digest := sha256.Sum256(buf.Bytes())
	return digest[:], nil
}
