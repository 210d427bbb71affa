// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcdescriptor/descriptor"
	"github.com/davecgh/go-spew/spew"
)

const (
	// maxScriptSize is the consensus limit on the size of an executed
	// script.
	maxScriptSize = 10000

	// maxStandardWitnessScriptSize is the largest witness script relayed
	// by default.
	maxStandardWitnessScriptSize = 3600
)

// Program is a compiled descriptor.  It is immutable and safe for
// concurrent use.
type Program struct {
	root   *node
	desc   *descriptor.Descriptor[descriptor.PubKey]
	script []byte
}

// String returns the compiled fragment tree.
func (p *Program) String() string {
	return p.root.String()
}

// Descriptor returns the descriptor the program was compiled from.
func (p *Program) Descriptor() *descriptor.Descriptor[descriptor.PubKey] {
	return p.desc
}

// Serialize returns the script of the program.  For wpkh, sh and wsh
// descriptors this is the output script.
func (p *Program) Serialize() []byte {
	return append([]byte(nil), p.script...)
}

// Script returns the script executed when spending: the witness script of
// wsh, the redeem script of sh and the pay-to-pubkey-hash script code of
// wpkh.  For other descriptors it is the same as Serialize.
func (p *Program) Script() []byte {
	switch p.root.frag {
	case fragWpkh, fragSh, fragWsh:
		return append([]byte(nil), p.root.inner...)
	}
	return p.Serialize()
}

// RequiredKeys returns every key of the descriptor, left to right.
func (p *Program) RequiredKeys() []descriptor.PubKey {
	return p.desc.AllKeys()
}

// ScriptLen returns the length of the executed script.
func (p *Program) ScriptLen() int {
	switch p.root.frag {
	case fragWpkh, fragSh, fragWsh:
		return len(p.root.inner)
	}
	return p.root.scriptLen
}

// OpCount returns the number of non-push opcodes of the executed script,
// counting the keys of each CHECKMULTISIG.
func (p *Program) OpCount() int {
	return p.root.opCount
}

// SatisfyElements returns the largest number of witness elements a
// satisfaction consumes.
func (p *Program) SatisfyElements() int {
	return p.root.satElems
}

// DissatisfyElements returns the number of witness elements of the
// dissatisfaction, or false when the program cannot be dissatisfied
// without failing.
func (p *Program) DissatisfyElements() (int, bool) {
	if !p.root.props.dissatisfiable {
		return 0, false
	}
	return p.root.dsatElems, true
}

// ExpectedSatisfactionSize returns the expected serialized size of the
// satisfying witness elements, weighting the branches of or by one half
// and assuming the right branch of aor is never taken.  Signatures are
// counted at their maximum size.
func (p *Program) ExpectedSatisfactionSize() float64 {
	return p.root.satSize
}

// MaxWitnessSize returns an upper bound of the serialized size of a
// satisfying witness, including the element count.
func (p *Program) MaxWitnessSize() int {
	return wire.VarIntSerializeSize(uint64(p.root.satElems)) +
		p.root.maxSatSize
}

// Disasm returns the disassembly of the executed script.
func (p *Program) Disasm() (string, error) {
	return txscript.DisasmString(p.Script())
}

// Address returns the address paying to the program.  Only pk, pkh, wpkh,
// sh and wsh descriptors have one.
func (p *Program) Address(params *chaincfg.Params) (btcutil.Address, error) {
	switch p.root.frag {
	case fragPk:
		return btcutil.NewAddressPubKey(p.root.keys[0].Bytes(), params)

	case fragPkh:
		return btcutil.NewAddressPubKeyHash(
			btcutil.Hash160(p.root.keys[0].Bytes()), params,
		)

	case fragWpkh:
		return btcutil.NewAddressWitnessPubKeyHash(
			btcutil.Hash160(p.root.keys[0].Bytes()), params,
		)

	case fragSh:
		return btcutil.NewAddressScriptHash(p.root.inner, params)

	case fragWsh:
		return btcutil.NewAddressWitnessScriptHash(
			chainhash.HashB(p.root.inner), params,
		)
	}

	str := fmt.Sprintf("descriptor %v has no address", p.desc.Kind())
	return nil, descriptor.NewError(descriptor.ErrInvalidProgram, str)
}

// CheckStandard returns an ErrNonStandard error when the program exceeds
// the script size, opcode or multisig key limits.
func (p *Program) CheckStandard() error {
	var (
		script = p.Script()
		limit  = txscript.MaxScriptElementSize
		what   = "redeem script"
	)
	switch p.root.frag {
	case fragWsh:
		limit = maxStandardWitnessScriptSize
		what = "witness script"
	case fragSh:
		if p.root.args[0].frag == fragWsh {
			script = p.root.args[0].inner
			limit = maxStandardWitnessScriptSize
			what = "witness script"
		}
	default:
		limit = maxScriptSize
		what = "script"
	}
	if len(script) > limit {
		str := fmt.Sprintf("%s is %d bytes, max %d", what, len(script),
			limit)
		return descriptor.NewError(descriptor.ErrNonStandard, str)
	}

	if p.root.opCount > txscript.MaxOpsPerScript {
		str := fmt.Sprintf("script has %d operations, max %d",
			p.root.opCount, txscript.MaxOpsPerScript)
		return descriptor.NewError(descriptor.ErrNonStandard, str)
	}

	var err error
	p.root.walk(func(n *node) {
		if err == nil && n.frag == fragMulti &&
			len(n.keys) > txscript.MaxPubKeysPerMultiSig {

			str := fmt.Sprintf("multi has %d keys, max %d",
				len(n.keys), txscript.MaxPubKeysPerMultiSig)
			err = descriptor.NewError(descriptor.ErrNonStandard, str)
		}
	})
	return err
}

// Satisfy returns the smallest witness satisfying the program with the
// given evidence.  Element 0 is the bottom of the stack.  For sh
// descriptors the returned elements are the pushes of the signature script,
// except that for sh(wsh(X)) and sh(wpkh(K)) only the last element, the
// redeem script, belongs to the signature script and the rest is the
// witness.  ErrUnsatisfied is returned when no satisfaction exists.
func (p *Program) Satisfy(ev *Evidence) (wire.TxWitness, error) {
	if ev == nil {
		ev = &Evidence{}
	}

	res, err := satisfy(p.root, ev)
	if err != nil {
		return nil, err
	}
	if !res.sat.available {
		log.Debugf("No satisfaction for %v with %d signatures, %d "+
			"preimages at age %d", p.desc, len(ev.Signatures),
			len(ev.Preimages), ev.Age)
		str := fmt.Sprintf("unable to satisfy %v", p.desc)
		return nil, descriptor.NewError(descriptor.ErrUnsatisfied, str)
	}

	log.Tracef("Satisfied %v: %v", p.desc, newLogClosure(func() string {
		return spew.Sdump(res.sat.witness)
	}))

	return res.sat.witness, nil
}

// walk calls fn for n and every node below it, depth first.
func (n *node) walk(fn func(*node)) {
	fn(n)
	for _, arg := range n.args {
		arg.walk(fn)
	}
}
