// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// lockTimeMask is the set of bits of a BIP68 relative lock time: the type
// flag and the 16 bit value.
const lockTimeMask = wire.SequenceLockTimeIsSeconds | wire.SequenceLockTimeMask

// Kind identifies the variant of a descriptor node.
type Kind uint8

const (
	// KindKey requires a signature by a key: pk(K).
	KindKey Kind = iota

	// KindKeyHash requires a signature by a key which is only committed
	// to by its hash: pkh(K).
	KindKeyHash

	// KindMulti requires k signatures from a list of keys:
	// multi(k,K1,...,Kn).
	KindMulti

	// KindHash requires the preimage of a SHA256 digest: hash(H).
	KindHash

	// KindTime requires a relative lock time to have matured: time(n).
	KindTime

	// KindThreshold requires k of the sub descriptors to be satisfied:
	// thres(k,X1,...,Xn).
	KindThreshold

	// KindAnd requires both sub descriptors to be satisfied: and(X,Y).
	KindAnd

	// KindOr requires either sub descriptor to be satisfied: or(X,Y).
	KindOr

	// KindAsymmetricOr is KindOr where the right branch is assumed to
	// be taken with negligible probability when estimating costs:
	// aor(X,Y).
	KindAsymmetricOr

	// KindWpkh is a pay-to-witness-pubkey-hash output: wpkh(K).
	KindWpkh

	// KindSh commits to the script of its sub descriptor with a
	// pay-to-script-hash output: sh(X).
	KindSh

	// KindWsh commits to the script of its sub descriptor with a
	// pay-to-witness-script-hash output: wsh(X).
	KindWsh
)

// kindNames maps each kind to its function name in the descriptor grammar.
var kindNames = map[Kind]string{
	KindKey:          "pk",
	KindKeyHash:      "pkh",
	KindMulti:        "multi",
	KindHash:         "hash",
	KindTime:         "time",
	KindThreshold:    "thres",
	KindAnd:          "and",
	KindOr:           "or",
	KindAsymmetricOr: "aor",
	KindWpkh:         "wpkh",
	KindSh:           "sh",
	KindWsh:          "wsh",
}

// String returns the grammar name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Kind (%d)", uint8(k))
}

// IsWrapper returns whether the kind describes an output commitment (wpkh,
// sh or wsh) rather than a spending condition.
func (k Kind) IsWrapper() bool {
	return k == KindWpkh || k == KindSh || k == KindWsh
}

// Descriptor is an immutable spending policy tree, generic over the key
// representation.  Descriptors over KeyName come out of ParseAbstract and
// are turned into descriptors over PubKey with Instantiate.
//
// Only the fields relevant for the node's kind are set:
//   - keys holds the single key of pk/pkh/wpkh or all keys of multi.
//   - k is the threshold of multi and thres.
//   - hash is the digest of hash.
//   - lockTime is the value of time.
//   - subs holds the children of thres, and, or, aor, sh and wsh.
type Descriptor[K Key] struct {
	kind     Kind
	k        int
	keys     []K
	hash     chainhash.Hash
	lockTime uint32
	subs     []*Descriptor[K]
}

// NewKey returns pk(key).
func NewKey[K Key](key K) *Descriptor[K] {
	return &Descriptor[K]{kind: KindKey, keys: []K{key}}
}

// NewKeyHash returns pkh(key).
func NewKeyHash[K Key](key K) *Descriptor[K] {
	return &Descriptor[K]{kind: KindKeyHash, keys: []K{key}}
}

// NewWpkh returns wpkh(key).
func NewWpkh[K Key](key K) *Descriptor[K] {
	return &Descriptor[K]{kind: KindWpkh, keys: []K{key}}
}

// NewMulti returns multi(k,keys...).  The threshold must satisfy
// 1 <= k <= len(keys).  The text grammar is stricter and rejects
// k == len(keys).
func NewMulti[K Key](k int, keys []K) (*Descriptor[K], error) {
	if err := checkThreshold(KindMulti, k, len(keys)); err != nil {
		return nil, err
	}
	return &Descriptor[K]{
		kind: KindMulti,
		k:    k,
		keys: append([]K(nil), keys...),
	}, nil
}

// NewHash returns hash(h).
func NewHash[K Key](h chainhash.Hash) *Descriptor[K] {
	return &Descriptor[K]{kind: KindHash, hash: h}
}

// NewTime returns time(n).  n is a BIP68 relative lock time: a block count
// up to 65535, or a number of 512 second units with
// wire.SequenceLockTimeIsSeconds set.  Zero and values with any other bit
// set are rejected, since OP_CHECKSEQUENCEVERIFY ignores those bits and the
// lock would mature earlier than n suggests.
func NewTime[K Key](n uint32) (*Descriptor[K], error) {
	if err := checkLockTime(n); err != nil {
		return nil, err
	}
	return &Descriptor[K]{kind: KindTime, lockTime: n}, nil
}

// checkLockTime validates the lock value of a time node.
func checkLockTime(n uint32) error {
	if n&wire.SequenceLockTimeMask == 0 {
		return descError(ErrSyntax, "time lock must be non-zero")
	}
	if n&^lockTimeMask != 0 {
		str := fmt.Sprintf("time lock %d is not a relative lock time, "+
			"allowed bits are %#x", n, lockTimeMask)
		return descError(ErrSyntax, str)
	}
	return nil
}

// NewThreshold returns thres(k,subs...).  The threshold must satisfy
// 1 <= k <= len(subs).  The text grammar is stricter and rejects
// k == len(subs).
func NewThreshold[K Key](k int, subs []*Descriptor[K]) (*Descriptor[K],
	error) {

	if err := checkThreshold(KindThreshold, k, len(subs)); err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if err := checkCondition(KindThreshold, sub); err != nil {
			return nil, err
		}
	}
	return &Descriptor[K]{
		kind: KindThreshold,
		k:    k,
		subs: append([]*Descriptor[K](nil), subs...),
	}, nil
}

// NewAnd returns and(left,right).
func NewAnd[K Key](left, right *Descriptor[K]) (*Descriptor[K], error) {
	return newBinary(KindAnd, left, right)
}

// NewOr returns or(left,right).
func NewOr[K Key](left, right *Descriptor[K]) (*Descriptor[K], error) {
	return newBinary(KindOr, left, right)
}

// NewAsymmetricOr returns aor(left,right).
func NewAsymmetricOr[K Key](left, right *Descriptor[K]) (*Descriptor[K],
	error) {

	return newBinary(KindAsymmetricOr, left, right)
}

// NewSh returns sh(sub).  Besides spending conditions, sh may wrap wsh and
// wpkh to form nested segwit outputs.
func NewSh[K Key](sub *Descriptor[K]) (*Descriptor[K], error) {
	if sub == nil {
		return nil, descError(ErrInvalidNesting, "sh requires a "+
			"sub descriptor")
	}
	if sub.kind == KindSh {
		return nil, descError(ErrInvalidNesting, "sh cannot wrap sh")
	}
	return &Descriptor[K]{kind: KindSh, subs: []*Descriptor[K]{sub}}, nil
}

// NewWsh returns wsh(sub).
func NewWsh[K Key](sub *Descriptor[K]) (*Descriptor[K], error) {
	if err := checkCondition(KindWsh, sub); err != nil {
		return nil, err
	}
	return &Descriptor[K]{kind: KindWsh, subs: []*Descriptor[K]{sub}}, nil
}

func newBinary[K Key](kind Kind, left, right *Descriptor[K]) (*Descriptor[K],
	error) {

	if err := checkCondition(kind, left); err != nil {
		return nil, err
	}
	if err := checkCondition(kind, right); err != nil {
		return nil, err
	}
	return &Descriptor[K]{
		kind: kind,
		subs: []*Descriptor[K]{left, right},
	}, nil
}

// checkThreshold validates the k of a k-of-n construction.
func checkThreshold(kind Kind, k, n int) error {
	if k < 1 || k > n {
		str := fmt.Sprintf("%s threshold %d out of range for %d "+
			"entries", kind, k, n)
		return descError(ErrInvalidThreshold, str)
	}
	return nil
}

// checkCondition makes sure sub is a spending condition that may appear as
// a child of parent.
func checkCondition[K Key](parent Kind, sub *Descriptor[K]) error {
	if sub == nil {
		str := fmt.Sprintf("%s requires a sub descriptor", parent)
		return descError(ErrInvalidNesting, str)
	}
	if sub.kind.IsWrapper() {
		str := fmt.Sprintf("%s cannot appear inside %s", sub.kind,
			parent)
		return descError(ErrInvalidNesting, str)
	}
	return nil
}

// Kind returns the variant of the node.
func (d *Descriptor[K]) Kind() Kind {
	return d.kind
}

// Threshold returns k for multi and thres nodes and zero otherwise.
func (d *Descriptor[K]) Threshold() int {
	return d.k
}

// Keys returns the keys held directly by this node: one for pk, pkh and
// wpkh, all of them for multi.
func (d *Descriptor[K]) Keys() []K {
	return append([]K(nil), d.keys...)
}

// Hash returns the digest of a hash node.
func (d *Descriptor[K]) Hash() chainhash.Hash {
	return d.hash
}

// LockTime returns the lock value of a time node.
func (d *Descriptor[K]) LockTime() uint32 {
	return d.lockTime
}

// Subs returns the children of the node in order.
func (d *Descriptor[K]) Subs() []*Descriptor[K] {
	return append([]*Descriptor[K](nil), d.subs...)
}

// AllKeys returns every key in the tree in left-to-right depth-first order.
func (d *Descriptor[K]) AllKeys() []K {
	var keys []K
	d.walk(func(node *Descriptor[K]) {
		keys = append(keys, node.keys...)
	})
	return keys
}

// walk calls fn for every node in depth-first pre-order.
func (d *Descriptor[K]) walk(fn func(*Descriptor[K])) {
	fn(d)
	for _, sub := range d.subs {
		sub.walk(fn)
	}
}

// Equal returns whether two descriptors are structurally identical.
func (d *Descriptor[K]) Equal(o *Descriptor[K]) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.kind != o.kind || d.k != o.k || d.hash != o.hash ||
		d.lockTime != o.lockTime || len(d.keys) != len(o.keys) ||
		len(d.subs) != len(o.subs) {

		return false
	}
	for i := range d.keys {
		if d.keys[i] != o.keys[i] {
			return false
		}
	}
	for i := range d.subs {
		if !d.subs[i].Equal(o.subs[i]) {
			return false
		}
	}
	return true
}
