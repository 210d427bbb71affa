// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcdescriptor/descriptor"
)

// fragment identifies the script layout a node emits.
type fragment uint8

const (
	fragPk      fragment = iota // <key> CHECKSIG
	fragPkh                     // DUP HASH160 <h160(key)> EQUALVERIFY CHECKSIG
	fragMulti                   // <k> <key1> ... <keyn> <n> CHECKMULTISIG
	fragHash                    // SIZE <32> EQUALVERIFY SHA256 <h> EQUAL
	fragOlder                   // <n> CHECKSEQUENCEVERIFY
	fragAndV                    // [X] [Y], X is a verify wrapper
	fragOrD                     // [X] IFDUP NOTIF [Z] ENDIF
	fragOrI                     // IF [X] ELSE [Z] ENDIF
	fragThresh                  // [X1] [X2] ADD ... [Xn] ADD <k> EQUAL
	wrapVerify                  // [X] VERIFY, collapsed into X when possible
	wrapNonZero                 // [X] 0NOTEQUAL
	wrapDissat                  // IF [X] ELSE 0 ENDIF
	wrapAlt                     // TOALTSTACK [X] FROMALTSTACK
	wrapSwap                    // SWAP [X]
	fragWpkh                    // 0 <h160(key)>
	fragSh                      // HASH160 <h160(redeem script)> EQUAL
	fragWsh                     // 0 <sha256(witness script)>
)

var fragmentNames = map[fragment]string{
	fragPk:      "pk",
	fragPkh:     "pkh",
	fragMulti:   "multi",
	fragHash:    "sha256",
	fragOlder:   "older",
	fragAndV:    "and_v",
	fragOrD:     "or_d",
	fragOrI:     "or_i",
	fragThresh:  "thresh",
	wrapVerify:  "v",
	wrapNonZero: "n",
	wrapDissat:  "u",
	wrapAlt:     "a",
	wrapSwap:    "s",
	fragWpkh:    "wpkh",
	fragSh:      "sh",
	fragWsh:     "wsh",
}

func (f fragment) String() string {
	if s, ok := fragmentNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Unknown fragment (%d)", uint8(f))
}

// isWrapper returns whether the fragment is a single child wrapper whose
// name is written with a colon prefix.
func (f fragment) isWrapper() bool {
	return f >= wrapVerify && f <= wrapSwap
}

// properties are the type properties of a node, following the miniscript
// type system in a reduced form.
type properties struct {
	// verify is set when the node leaves nothing on the stack and aborts
	// on failure.  All other nodes leave exactly one element which is
	// non-zero on satisfaction.
	verify bool

	// dissatisfiable is set when a dissatisfaction exists which leaves
	// zero on the stack without aborting.
	dissatisfiable bool

	// unit is set when a satisfaction leaves exactly 1 on the stack.
	unit bool

	// single is set when the node consumes exactly one stack element on
	// every path, so it can be reached with a SWAP.
	single bool

	// zero is set when the node consumes no stack elements.
	zero bool

	// canCollapseVerify is set when the last opcode of the node is
	// OP_CHECKSIG, OP_CHECKMULTISIG or OP_EQUAL, which have a VERIFY
	// version that saves the separate OP_VERIFY.
	canCollapseVerify bool
}

func (p properties) String() string {
	s := strings.Builder{}
	if p.verify {
		s.WriteRune('V')
	} else {
		s.WriteRune('B')
	}
	if p.dissatisfiable {
		s.WriteRune('d')
	}
	if p.unit {
		s.WriteRune('u')
	}
	if p.single {
		s.WriteRune('o')
	}
	if p.zero {
		s.WriteRune('z')
	}
	return s.String()
}

// costs is the size bookkeeping of a node.  Element counts are the number
// of witness stack elements the node consumes; sizes are serialized witness
// bytes.
type costs struct {
	scriptLen int
	opCount   int

	satElems  int
	dsatElems int

	// satSize is the expected satisfaction size, weighting or branches
	// by their probability.  maxSatSize and dsatSize are worst cases.
	satSize    float64
	maxSatSize int
	dsatSize   int
}

// node is one fragment of a compiled program.  The tree mirrors the
// descriptor it was compiled from, with wrapper nodes inserted where a
// sub-program needs to be adapted to its parent.
type node struct {
	frag  fragment
	props properties
	costs

	// desc is the descriptor node this fragment implements.  Wrappers
	// share the descriptor of the node they wrap.
	desc *descriptor.Descriptor[descriptor.PubKey]

	k        int
	keys     []descriptor.PubKey
	hash     chainhash.Hash
	lockTime uint32
	args     []*node

	// pLeft is the probability the left branch of an or node is taken.
	pLeft float64

	// inner is the script committed to by sh and wsh nodes.
	inner []byte
}

// String returns the fragment tree in miniscript notation, for example
// or_d(multi(1,..),and_v(v:pk(..),older(10))).
func (n *node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *node) write(b *strings.Builder) {
	if n.frag.isWrapper() {
		b.WriteString(n.frag.String())
		b.WriteByte(':')
		n.args[0].write(b)
		return
	}

	b.WriteString(n.frag.String())
	b.WriteByte('(')
	var parts []string
	switch n.frag {
	case fragPk, fragPkh, fragWpkh:
		parts = append(parts, n.keys[0].String())
	case fragMulti:
		parts = append(parts, fmt.Sprint(n.k))
		for _, key := range n.keys {
			parts = append(parts, key.String())
		}
	case fragHash:
		parts = append(parts, fmt.Sprintf("%x", n.hash[:]))
	case fragOlder:
		parts = append(parts, fmt.Sprint(n.lockTime))
	case fragThresh:
		parts = append(parts, fmt.Sprint(n.k))
	}
	b.WriteString(strings.Join(parts, ","))
	for i, arg := range n.args {
		if i > 0 || len(parts) > 0 {
			b.WriteByte(',')
		}
		arg.write(b)
	}
	b.WriteByte(')')
}
