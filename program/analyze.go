// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcdescriptor/descriptor"
)

const (
	// pubKeyDataPushLen is the length of a compressed public key push
	// including the push opcode.
	pubKeyDataPushLen = 1 + btcec.PubKeyBytesLenCompressed

	// maxSigLen is the length of the largest DER signature plus the
	// sighash type byte.
	maxSigLen = 73

	// preimageLen is the only preimage length the SIZE check accepts.
	preimageLen = 32
)

// elemSize returns the serialized size of a witness element of the given
// length.
func elemSize(n int) int {
	return wire.VarIntSerializeSize(uint64(n)) + n
}

var (
	sigSize      = elemSize(maxSigLen)
	keySize      = elemSize(btcec.PubKeyBytesLenCompressed)
	preimageSize = elemSize(preimageLen)
	emptySize    = elemSize(0)
	oneSize      = elemSize(1)
)

func numPushLen(n int64) int {
	numPush, _ := txscript.NewScriptBuilder().AddInt64(n).Script()
	return len(numPush)
}

// analyze computes the properties and costs of a node whose children have
// already been analyzed.
func analyze(n *node) (*node, error) {
	passes := []func(*node) error{
		typeCheck,
		canCollapseVerify,
		computeScriptLen,
		computeOpCount,
		computeWitnessCosts,
	}
	for _, pass := range passes {
		if err := pass(n); err != nil {
			return nil, err
		}
	}

	log.Tracef("%v: type %v, script %d bytes, %d ops, sat %d elements",
		n.frag, n.props, n.scriptLen, n.opCount, n.satElems)

	return n, nil
}

func invalidArg(n *node, arg *node, want string) error {
	str := fmt.Sprintf("%s requires %s argument, got %s (type %v)",
		n.frag, want, arg.frag, arg.props)
	return descriptor.NewError(descriptor.ErrInvalidProgram, str)
}

// typeCheck derives the type properties of a node from its children and
// rejects compositions which would not execute correctly.
func typeCheck(n *node) error {
	expectArgs := func(num int) error {
		if len(n.args) != num {
			str := fmt.Sprintf("%s expects %d arguments, got %d",
				n.frag, num, len(n.args))
			return descriptor.NewError(descriptor.ErrInvalidProgram, str)
		}
		return nil
	}

	switch n.frag {
	case fragPk, fragPkh, fragWpkh:
		if len(n.keys) != 1 {
			str := fmt.Sprintf("empty key for %s", n.frag)
			return descriptor.NewError(descriptor.ErrInvalidProgram, str)
		}
		switch n.frag {
		case fragPk:
			n.props = properties{dissatisfiable: true, unit: true,
				single: true}
		case fragPkh:
			n.props = properties{dissatisfiable: true, unit: true}
		}

	case fragMulti:
		if n.k < 1 || n.k > len(n.keys) {
			str := fmt.Sprintf("multi threshold %d out of range for "+
				"%d keys", n.k, len(n.keys))
			return descriptor.NewError(descriptor.ErrInvalidProgram, str)
		}
		n.props = properties{dissatisfiable: true, unit: true}

	case fragHash:
		n.props = properties{dissatisfiable: true, unit: true,
			single: true}

	case fragOlder:
		if n.lockTime == 0 {
			return descriptor.NewError(descriptor.ErrInvalidProgram,
				"older requires a non-zero lock time")
		}
		n.props = properties{zero: true}

	case fragAndV:
		if err := expectArgs(2); err != nil {
			return err
		}
		x, y := n.args[0], n.args[1]
		if !x.props.verify {
			return invalidArg(n, x, "a verify")
		}
		if y.props.verify {
			return invalidArg(n, y, "a base")
		}
		n.props = properties{
			unit: y.props.unit,
			zero: x.props.zero && y.props.zero,
			single: (x.props.zero && y.props.single) ||
				(x.props.single && y.props.zero),
		}

	case fragOrD:
		if err := expectArgs(2); err != nil {
			return err
		}
		x, z := n.args[0], n.args[1]
		if x.props.verify || !x.props.dissatisfiable || !x.props.unit {
			return invalidArg(n, x, "a dissatisfiable unit")
		}
		if z.props.verify {
			return invalidArg(n, z, "a base")
		}
		n.props = properties{
			dissatisfiable: z.props.dissatisfiable,
			unit:           z.props.unit,
			single:         x.props.single && z.props.zero,
		}

	case fragOrI:
		if err := expectArgs(2); err != nil {
			return err
		}
		x, z := n.args[0], n.args[1]
		for _, arg := range n.args {
			if arg.props.verify {
				return invalidArg(n, arg, "a base")
			}
		}
		n.props = properties{
			dissatisfiable: x.props.dissatisfiable ||
				z.props.dissatisfiable,
			unit:   x.props.unit && z.props.unit,
			single: x.props.zero && z.props.zero,
		}

	case fragThresh:
		if len(n.args) == 0 || n.k < 1 || n.k > len(n.args) {
			str := fmt.Sprintf("thresh threshold %d out of range for "+
				"%d arguments", n.k, len(n.args))
			return descriptor.NewError(descriptor.ErrInvalidProgram, str)
		}
		for _, arg := range n.args {
			if arg.props.verify || !arg.props.dissatisfiable ||
				!arg.props.unit {

				return invalidArg(n, arg, "a dissatisfiable unit")
			}
		}
		n.props = properties{
			dissatisfiable: true,
			unit:           true,
			single:         len(n.args) == 1 && n.args[0].props.single,
		}

	case wrapVerify, wrapNonZero, wrapDissat, wrapAlt, wrapSwap:
		if err := expectArgs(1); err != nil {
			return err
		}
		x := n.args[0]
		if x.props.verify {
			return invalidArg(n, x, "a base")
		}
		n.props = x.props
		switch n.frag {
		case wrapVerify:
			n.props.verify = true
			n.props.dissatisfiable = false
			n.props.unit = false
		case wrapNonZero:
			n.props.unit = true
		case wrapDissat:
			n.props.dissatisfiable = true
			n.props.single = x.props.zero
			n.props.zero = false
		case wrapSwap:
			if !x.props.single {
				return invalidArg(n, x, "a single element")
			}
		}
		n.props.canCollapseVerify = false

	case fragSh, fragWsh:
		if err := expectArgs(1); err != nil {
			return err
		}
		if len(n.inner) == 0 {
			str := fmt.Sprintf("empty script for %s", n.frag)
			return descriptor.NewError(descriptor.ErrInvalidProgram, str)
		}
		n.props = properties{}

	default:
		str := fmt.Sprintf("unknown fragment: %v", n.frag)
		return descriptor.NewError(descriptor.ErrInvalidProgram, str)
	}

	return nil
}

func canCollapseVerify(n *node) error {
	switch n.frag {
	case fragPk, fragPkh, fragMulti, fragHash, fragThresh:
		n.props.canCollapseVerify = true

	case fragAndV:
		n.props.canCollapseVerify = n.args[1].props.canCollapseVerify

	case wrapSwap:
		n.props.canCollapseVerify = n.args[0].props.canCollapseVerify
	}

	return nil
}

func computeScriptLen(n *node) error {
	argsSummed := 0
	for _, arg := range n.args {
		argsSummed += arg.scriptLen
	}

	switch n.frag {
	case fragPk:
		n.scriptLen = pubKeyDataPushLen + 1

	case fragPkh:
		// DUP HASH160 <20 bytes> EQUALVERIFY CHECKSIG
		n.scriptLen = 25

	case fragMulti:
		n.scriptLen = numPushLen(int64(n.k)) +
			len(n.keys)*pubKeyDataPushLen +
			numPushLen(int64(len(n.keys))) + 1

	case fragHash:
		n.scriptLen = 4 + numPushLen(preimageLen) + 1 + preimageLen

	case fragOlder:
		n.scriptLen = numPushLen(int64(n.lockTime)) + 1

	case fragAndV:
		n.scriptLen = argsSummed

	case fragOrD, fragOrI:
		n.scriptLen = argsSummed + 3

	case fragThresh:
		n.scriptLen = argsSummed + len(n.args) - 1 +
			numPushLen(int64(n.k)) + 1

	case wrapVerify:
		if n.args[0].props.canCollapseVerify {
			// OP_VERIFY not needed, collapsed into OP_EQUALVERIFY,
			// OP_CHECKSIGVERIFY, OP_CHECKMULTISIGVERIFY
			n.scriptLen = argsSummed
		} else {
			n.scriptLen = argsSummed + 1
		}

	case wrapNonZero, wrapSwap:
		n.scriptLen = argsSummed + 1

	case wrapAlt:
		n.scriptLen = argsSummed + 2

	case wrapDissat:
		n.scriptLen = argsSummed + 4

	case fragWpkh:
		n.scriptLen = 2 + 20

	case fragSh:
		n.scriptLen = 3 + 20

	case fragWsh:
		n.scriptLen = 2 + 32
	}

	return nil
}

// computeOpCount counts the non-push opcodes of the executed script.  Every
// CHECKMULTISIG also counts its keys the way the interpreter does.  The
// count of wpkh, sh and wsh nodes is the count of the script they commit
// to.
func computeOpCount(n *node) error {
	argsSummed := 0
	for _, arg := range n.args {
		argsSummed += arg.opCount
	}

	switch n.frag {
	case fragPk, fragOlder:
		n.opCount = 1

	case fragPkh, fragHash, fragWpkh:
		n.opCount = 4

	case fragMulti:
		n.opCount = 1 + len(n.keys)

	case fragAndV, fragSh, fragWsh:
		n.opCount = argsSummed

	case fragOrD, fragOrI, wrapDissat:
		n.opCount = argsSummed + 3

	case fragThresh:
		n.opCount = argsSummed + len(n.args)

	case wrapVerify:
		if n.args[0].props.canCollapseVerify {
			n.opCount = argsSummed
		} else {
			n.opCount = argsSummed + 1
		}

	case wrapNonZero, wrapSwap:
		n.opCount = argsSummed + 1

	case wrapAlt:
		n.opCount = argsSummed + 2
	}

	return nil
}

// computeWitnessCosts computes the witness element counts and sizes of the
// satisfying and dissatisfying paths.
func computeWitnessCosts(n *node) error {
	switch n.frag {
	case fragPk:
		n.satElems, n.dsatElems = 1, 1
		n.satSize = float64(sigSize)
		n.maxSatSize = sigSize
		n.dsatSize = emptySize

	case fragPkh, fragWpkh:
		n.satElems, n.dsatElems = 2, 2
		n.satSize = float64(sigSize + keySize)
		n.maxSatSize = sigSize + keySize
		n.dsatSize = emptySize + keySize

	case fragMulti:
		n.satElems, n.dsatElems = n.k+1, n.k+1
		n.maxSatSize = emptySize + n.k*sigSize
		n.satSize = float64(n.maxSatSize)
		n.dsatSize = (n.k + 1) * emptySize

	case fragHash:
		n.satElems, n.dsatElems = 1, 1
		n.satSize = float64(preimageSize)
		n.maxSatSize = preimageSize
		n.dsatSize = preimageSize

	case fragOlder:

	case fragAndV:
		x, y := n.args[0], n.args[1]
		n.satElems = x.satElems + y.satElems
		n.satSize = x.satSize + y.satSize
		n.maxSatSize = x.maxSatSize + y.maxSatSize

	case fragOrD:
		x, z := n.args[0], n.args[1]
		n.satElems = maxOf(x.satElems, z.satElems+x.dsatElems)
		n.dsatElems = z.dsatElems + x.dsatElems
		n.satSize = n.pLeft*x.satSize +
			(1-n.pLeft)*(z.satSize+float64(x.dsatSize))
		n.maxSatSize = maxOf(x.maxSatSize, z.maxSatSize+x.dsatSize)
		n.dsatSize = z.dsatSize + x.dsatSize

	case fragOrI:
		x, z := n.args[0], n.args[1]
		n.satElems = maxOf(x.satElems, z.satElems) + 1
		n.satSize = n.pLeft*(x.satSize+float64(oneSize)) +
			(1-n.pLeft)*(z.satSize+float64(emptySize))
		n.maxSatSize = maxOf(x.maxSatSize+oneSize,
			z.maxSatSize+emptySize)

		// The smaller dissatisfaction is the one the satisfier picks.
		switch {
		case x.props.dissatisfiable && (!z.props.dissatisfiable ||
			x.dsatSize+oneSize <= z.dsatSize+emptySize):

			n.dsatElems = x.dsatElems + 1
			n.dsatSize = x.dsatSize + oneSize

		case z.props.dissatisfiable:
			n.dsatElems = z.dsatElems + 1
			n.dsatSize = z.dsatSize + emptySize
		}

	case fragThresh:
		// Start from every argument dissatisfied, then satisfy the k
		// arguments that add the least.
		var (
			deltas    = make([]float64, 0, len(n.args))
			maxDeltas = make([]int, 0, len(n.args))
		)
		for _, arg := range n.args {
			n.satElems += maxOf(arg.satElems, arg.dsatElems)
			n.dsatElems += arg.dsatElems
			n.dsatSize += arg.dsatSize
			deltas = append(deltas, arg.satSize-float64(arg.dsatSize))
			maxDeltas = append(maxDeltas, arg.maxSatSize-arg.dsatSize)
		}
		sort.Float64s(deltas)
		sort.Sort(sort.Reverse(sort.IntSlice(maxDeltas)))

		n.satSize = float64(n.dsatSize)
		n.maxSatSize = n.dsatSize
		for i := 0; i < n.k; i++ {
			n.satSize += deltas[i]
			n.maxSatSize += maxDeltas[i]
		}

	case wrapVerify:
		x := n.args[0]
		n.satElems = x.satElems
		n.satSize = x.satSize
		n.maxSatSize = x.maxSatSize

	case wrapNonZero, wrapAlt, wrapSwap:
		x := n.args[0]
		n.satElems, n.dsatElems = x.satElems, x.dsatElems
		n.satSize = x.satSize
		n.maxSatSize, n.dsatSize = x.maxSatSize, x.dsatSize

	case wrapDissat:
		x := n.args[0]
		n.satElems, n.dsatElems = x.satElems+1, 1
		n.satSize = x.satSize + float64(oneSize)
		n.maxSatSize = x.maxSatSize + oneSize
		n.dsatSize = emptySize

	case fragSh, fragWsh:
		x := n.args[0]
		push := elemSize(len(n.inner))
		n.satElems = x.satElems + 1
		n.satSize = x.satSize + float64(push)
		n.maxSatSize = x.maxSatSize + push
	}

	if !n.props.dissatisfiable {
		n.dsatElems, n.dsatSize = 0, 0
	}

	return nil
}

func maxOf(a, b int) int {
	if a >= b {
		return a
	}
	return b
}
