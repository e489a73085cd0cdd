package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// accountNamePattern is the shape every account name must satisfy before
// it is sent to the RPC layer.
var accountNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-\.]*$`)

// ValidateAccountName rejects names that cannot be valid accounts.
func ValidateAccountName(name string) error {
	if name == "" {
		return ErrorWithInfo(KindMissingParam, map[string]any{"param": "username"})
	}
	if !accountNamePattern.MatchString(name) {
		return ErrorWithInfo(KindNoSuchAccount, map[string]any{"name": name})
	}
	return nil
}

// KeyAuth is one public-key authority entry. On the wire it is a
// ["STM...", weight] pair.
type KeyAuth struct {
	PublicKey string
	Weight    int
}

// UnmarshalJSON decodes the [key, weight] pair shape.
func (k *KeyAuth) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("key_auth pair: %w", err)
	}
	if err := json.Unmarshal(pair[0], &k.PublicKey); err != nil {
		return fmt.Errorf("key_auth key: %w", err)
	}
	if err := json.Unmarshal(pair[1], &k.Weight); err != nil {
		return fmt.Errorf("key_auth weight: %w", err)
	}
	return nil
}

// MarshalJSON encodes the [key, weight] pair shape.
func (k KeyAuth) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{k.PublicKey, k.Weight})
}

// AccountAuth is one delegated account authority entry. On the wire it is
// an ["accountname", weight] pair.
type AccountAuth struct {
	Account string
	Weight  int
}

// UnmarshalJSON decodes the [account, weight] pair shape.
func (a *AccountAuth) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("account_auth pair: %w", err)
	}
	if err := json.Unmarshal(pair[0], &a.Account); err != nil {
		return fmt.Errorf("account_auth name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &a.Weight); err != nil {
		return fmt.Errorf("account_auth weight: %w", err)
	}
	return nil
}

// MarshalJSON encodes the [account, weight] pair shape.
func (a AccountAuth) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{a.Account, a.Weight})
}

// Authority is one authority level of an account.
type Authority struct {
	WeightThreshold int           `json:"weight_threshold"`
	AccountAuths    []AccountAuth `json:"account_auths"`
	KeyAuths        []KeyAuth     `json:"key_auths"`
}

// HasKeyWithThreshold reports whether the authority contains the given
// public key with weight at or above the authority's threshold.
func (a *Authority) HasKeyWithThreshold(publicKey string) bool {
	for _, ka := range a.KeyAuths {
		if ka.PublicKey == publicKey && ka.Weight >= a.WeightThreshold {
			return true
		}
	}
	return false
}

// HasAccountAuth reports whether the authority delegates to the given
// account at any weight.
func (a *Authority) HasAccountAuth(account string) bool {
	for _, aa := range a.AccountAuths {
		if aa.Account == account {
			return true
		}
	}
	return false
}

// Account is the subset of the chain account record the service consumes.
type Account struct {
	Name    string    `json:"name"`
	Owner   Authority `json:"owner"`
	Active  Authority `json:"active"`
	Posting Authority `json:"posting"`
}

// ProfileFields is the profile section of the account metadata blob.
type ProfileFields struct {
	ProfileImage string `json:"profile_image"`
	CoverImage   string `json:"cover_image"`
}

// ProfileMetadata is the parsed posting_json_metadata document.
type ProfileMetadata struct {
	Profile ProfileFields `json:"profile"`
}

// Profile is the subset of the bridge profile record the service consumes.
// Reputation arrives already normalized by the RPC node.
type Profile struct {
	Name       string          `json:"name"`
	Metadata   ProfileMetadata `json:"metadata"`
	Reputation float64         `json:"reputation"`
}
