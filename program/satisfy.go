// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcdescriptor/descriptor"
)

// Signature is a signature together with the sighash type it commits to.
type Signature struct {
	Sig      *ecdsa.Signature
	HashType txscript.SigHashType
}

// Serialize returns the signature in the form pushed on the witness stack:
// the DER encoding followed by the sighash type byte.
func (s Signature) Serialize() []byte {
	return append(s.Sig.Serialize(), byte(s.HashType))
}

// Evidence is what is known about the spending transaction.  The maps are
// never modified, so the same Evidence may be used by concurrent calls.
type Evidence struct {
	// Signatures holds the signatures available for each key.
	Signatures map[descriptor.PubKey]Signature

	// Preimages maps SHA256 digests to their preimages.
	Preimages map[chainhash.Hash][]byte

	// Age is the relative lock time of the spending input, in the BIP68
	// encoding of the input sequence number.  It is compared against
	// time(n) the way OP_CHECKSEQUENCEVERIFY compares sequence numbers.
	Age uint32
}

// satisfaction is a witness that satisfies or dissatisfies a node, based on
// `InputStack` of the Bitcoin Core miniscript implementation.
type satisfaction struct {
	// witness is the list of data elements, the last one being the top
	// of the stack when the node starts executing.
	witness wire.TxWitness

	// available, if false, indicates there is no valid satisfaction (i.e.
	// signature or preimage not available, time lock not matured, or no
	// dissatisfaction exists).
	available bool
}

func (s *satisfaction) and(b *satisfaction) *satisfaction {
	witness := append(wire.TxWitness{}, s.witness...)
	return &satisfaction{
		witness:   append(witness, b.witness...),
		available: s.available && b.available,
	}
}

// or picks the available satisfaction with the smaller serialized size.
// On a tie s is returned.
func (s *satisfaction) or(b *satisfaction) *satisfaction {
	if !s.available {
		return b
	}
	if !b.available {
		return s
	}
	if s.witness.SerializeSize() <= b.witness.SerializeSize() {
		return s
	}
	return b
}

type satisfactions struct {
	dsat, sat *satisfaction
}

func unavailable() *satisfaction {
	return &satisfaction{}
}

func push(data []byte) *satisfaction {
	return &satisfaction{
		witness:   wire.TxWitness{data},
		available: true,
	}
}

// zero is the empty element, which is OP_0/OP_FALSE.
func zero() *satisfaction {
	return push([]byte{})
}

func one() *satisfaction {
	return push([]byte{1})
}

func empty() *satisfaction {
	return &satisfaction{witness: wire.TxWitness{}, available: true}
}

func verifyLockTime(txLockTime uint32, threshold uint32, lockTime uint32) bool {
	if !((txLockTime < threshold && lockTime < threshold) ||
		(txLockTime >= threshold && lockTime >= threshold)) {

		// Can't mix time lock types (blocks vs time).
		return false
	}
	return lockTime <= txLockTime
}

// CheckOlder checks if an OP_CHECKSEQUENCEVERIFY (BIP112, BIP68) of lockTime
// passes for an input with the given sequence number in a version 2
// transaction.  A sequence with the disable flag set never passes.
func CheckOlder(lockTime uint32, txInputSequence uint32) bool {
	// See BIP68. Mask off non-consensus bits before doing comparisons.
	lockTimeMask := uint32(
		wire.SequenceLockTimeIsSeconds | wire.SequenceLockTimeMask,
	)
	return txInputSequence&wire.SequenceLockTimeDisabled == 0 &&
		verifyLockTime(
			txInputSequence&lockTimeMask,
			wire.SequenceLockTimeIsSeconds,
			lockTime&lockTimeMask,
		)
}

// satisfy is based on `ProduceInput()` of the Bitcoin Core implementation,
// restricted to the fragments the compiler emits.
func satisfy(n *node, ev *Evidence) (*satisfactions, error) {
	sign := func(key descriptor.PubKey) *satisfaction {
		sig, ok := ev.Signatures[key]
		if !ok || sig.Sig == nil {
			return unavailable()
		}
		return push(sig.Serialize())
	}

	switch n.frag {
	case fragPk:
		return &satisfactions{
			dsat: zero(),
			sat:  sign(n.keys[0]),
		}, nil

	case fragPkh, fragWpkh:
		key := push(n.keys[0].Bytes())
		return &satisfactions{
			dsat: zero().and(key),
			sat:  sign(n.keys[0]).and(key),
		}, nil

	case fragMulti:
		// CHECKMULTISIG pops one element more than it needs, and the
		// signatures have to be in key order.
		sat := zero()
		count := 0
		for _, key := range n.keys {
			if count == n.k {
				break
			}
			sig := sign(key)
			if !sig.available {
				continue
			}
			sat = sat.and(sig)
			count++
		}
		sat.available = count == n.k

		dsat := zero()
		for i := 0; i < n.k; i++ {
			dsat = dsat.and(zero())
		}
		return &satisfactions{dsat: dsat, sat: sat}, nil

	case fragHash:
		sat := unavailable()
		preimage, ok := ev.Preimages[n.hash]
		switch {
		case !ok:
		case len(preimage) != preimageLen:
			// Fails the size check, so the leaf can only be
			// dissatisfied.
			log.Debugf("Ignoring preimage of %x with %d bytes, "+
				"expected %d", n.hash[:], len(preimage),
				preimageLen)
		default:
			sat = push(preimage)
		}
		return &satisfactions{
			dsat: push(make([]byte, preimageLen)),
			sat:  sat,
		}, nil

	case fragOlder:
		sat := unavailable()
		if CheckOlder(n.lockTime, ev.Age) {
			sat = empty()
		}
		return &satisfactions{dsat: unavailable(), sat: sat}, nil
	}

	args := make([]*satisfactions, 0, len(n.args))
	for _, arg := range n.args {
		res, err := satisfy(arg, ev)
		if err != nil {
			return nil, err
		}
		args = append(args, res)
	}

	switch n.frag {
	case fragAndV:
		x, y := args[0], args[1]
		return &satisfactions{
			dsat: unavailable(),
			sat:  y.sat.and(x.sat),
		}, nil

	case fragOrD:
		x, z := args[0], args[1]
		return &satisfactions{
			dsat: z.dsat.and(x.dsat),
			sat:  x.sat.or(z.sat.and(x.dsat)),
		}, nil

	case fragOrI:
		x, z := args[0], args[1]
		return &satisfactions{
			dsat: x.dsat.and(one()).or(z.dsat.and(zero())),
			sat:  x.sat.and(one()).or(z.sat.and(zero())),
		}, nil

	case fragThresh:
		// sats[j] is the best witness for the arguments seen so far with
		// exactly j of them satisfied.  Each argument's witness goes
		// below the ones before it, as the first argument executes
		// first.
		sats := []*satisfaction{empty()}
		for _, arg := range args {
			next := make([]*satisfaction, 0, len(sats)+1)
			for j := 0; j <= len(sats); j++ {
				cand := unavailable()
				if j < len(sats) {
					cand = arg.dsat.and(sats[j])
				}
				if j > 0 {
					cand = cand.or(arg.sat.and(sats[j-1]))
				}
				next = append(next, cand)
			}
			sats = next
		}
		return &satisfactions{dsat: sats[0], sat: sats[n.k]}, nil

	case wrapVerify:
		return &satisfactions{dsat: unavailable(), sat: args[0].sat}, nil

	case wrapNonZero, wrapAlt, wrapSwap:
		return args[0], nil

	case wrapDissat:
		return &satisfactions{
			dsat: zero(),
			sat:  args[0].sat.and(one()),
		}, nil

	case fragSh, fragWsh:
		return &satisfactions{
			dsat: unavailable(),
			sat:  args[0].sat.and(push(n.inner)),
		}, nil
	}

	str := fmt.Sprintf("unknown fragment: %v", n.frag)
	return nil, descriptor.NewError(descriptor.ErrInvalidProgram, str)
}
