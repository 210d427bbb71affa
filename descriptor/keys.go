// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Key is the capability a key representation must provide to appear in a
// descriptor.  Keys are compared by value and render to the text form the
// parser accepts back.
type Key interface {
	comparable
	String() string
}

// KeyParser converts the text form of a key into a key value.
type KeyParser[K Key] func(string) (K, error)

// KeyName is an abstract key placeholder, for example a wallet specific
// label or derivation path, to be swapped for a concrete key with
// Instantiate.
type KeyName string

// String returns the placeholder text.
func (k KeyName) String() string {
	return string(k)
}

// isKeyNameChar returns whether c may appear in an abstract key name.
func isKeyNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '_', '-', '/', '\'', '*', '.', '[', ']', '#', ':', '@':
		return true
	}
	return false
}

// ParseKeyName validates s as an abstract key placeholder.
func ParseKeyName(s string) (KeyName, error) {
	if s == "" {
		return "", fmt.Errorf("empty key name")
	}
	for i := 0; i < len(s); i++ {
		if !isKeyNameChar(s[i]) {
			return "", fmt.Errorf("invalid character %q in key "+
				"name %q", s[i], s)
		}
	}
	return KeyName(s), nil
}

// PubKey is a concrete secp256k1 public key in its 33 byte compressed
// serialization.  It is a value type so it can be used as a map key in the
// evidence handed to the satisfier.
type PubKey [btcec.PubKeyBytesLenCompressed]byte

// NewPubKey returns the compressed serialization of a parsed public key.
func NewPubKey(key *btcec.PublicKey) PubKey {
	var pk PubKey
	copy(pk[:], key.SerializeCompressed())
	return pk
}

// ParsePubKeyBytes parses a serialized public key.  Uncompressed and hybrid
// encodings are accepted and normalized to the compressed form.
func ParsePubKeyBytes(b []byte) (PubKey, error) {
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return PubKey{}, err
	}
	return NewPubKey(key), nil
}

// ParsePubKey parses the hex encoding of a public key.  This is the key
// parser for concrete descriptors.
func ParsePubKey(s string) (PubKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PubKey{}, err
	}
	if len(b) != btcec.PubKeyBytesLenCompressed {
		return PubKey{}, fmt.Errorf("public key must be %d bytes "+
			"compressed, got %d", btcec.PubKeyBytesLenCompressed,
			len(b))
	}
	return ParsePubKeyBytes(b)
}

// String returns the lowercase hex encoding of the compressed key.
func (k PubKey) String() string {
	return hex.EncodeToString(k[:])
}

// Bytes returns a copy of the compressed serialization.
func (k PubKey) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}

// PublicKey returns the parsed secp256k1 point.
func (k PubKey) PublicKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(k[:])
}
