// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcdescriptor/descriptor"
)

// scriptWriter appends opcodes and canonical pushes to a script.  Every push
// is encoded by its own txscript.ScriptBuilder, so scripts above the
// consensus size limit are still produced and left to CheckStandard.
type scriptWriter struct {
	script []byte
	err    error
}

func (w *scriptWriter) AddOp(opcode byte) {
	w.script = append(w.script, opcode)
}

func (w *scriptWriter) AddData(data []byte) {
	w.add(txscript.NewScriptBuilder().AddData(data))
}

func (w *scriptWriter) AddInt64(val int64) {
	w.add(txscript.NewScriptBuilder().AddInt64(val))
}

func (w *scriptWriter) add(b *txscript.ScriptBuilder) {
	elem, err := b.Script()
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return
	}
	w.script = append(w.script, elem...)
}

// Script returns the script and the first push error, if any.
func (w *scriptWriter) Script() ([]byte, error) {
	return w.script, w.err
}

// buildScript returns the script of a node.  For wpkh, sh and wsh nodes this
// is the output script committing to the inner script.
func buildScript(n *node) ([]byte, error) {
	b := &scriptWriter{}
	if err := n.build(b, false); err != nil {
		return nil, err
	}
	script, err := b.Script()
	if err != nil {
		str := fmt.Sprintf("unable to build script for %v", n)
		return nil, descriptor.Error{
			ErrorCode:   descriptor.ErrInvalidProgram,
			Description: str,
			Err:         err,
		}
	}
	if len(script) != n.scriptLen {
		str := fmt.Sprintf("script for %v is %d bytes, expected %d", n,
			len(script), n.scriptLen)
		return nil, descriptor.NewError(descriptor.ErrInvalidProgram, str)
	}
	return script, nil
}

// build adds the opcodes of the node to the builder.  verify is set when
// the node is the operand of a collapsed verify wrapper, in which case the
// final check uses its VERIFY form.
func (n *node) build(b *scriptWriter, verify bool) error {
	collapse := verify && n.props.canCollapseVerify

	checkOp := func(op, verifyOp byte) {
		if collapse {
			b.AddOp(verifyOp)
		} else {
			b.AddOp(op)
		}
	}

	switch n.frag {
	case fragPk:
		b.AddData(n.keys[0].Bytes())
		checkOp(txscript.OP_CHECKSIG, txscript.OP_CHECKSIGVERIFY)

	case fragPkh:
		b.AddOp(txscript.OP_DUP)
		b.AddOp(txscript.OP_HASH160)
		b.AddData(btcutil.Hash160(n.keys[0].Bytes()))
		b.AddOp(txscript.OP_EQUALVERIFY)
		checkOp(txscript.OP_CHECKSIG, txscript.OP_CHECKSIGVERIFY)

	case fragMulti:
		b.AddInt64(int64(n.k))
		for _, key := range n.keys {
			b.AddData(key.Bytes())
		}
		b.AddInt64(int64(len(n.keys)))
		checkOp(txscript.OP_CHECKMULTISIG, txscript.OP_CHECKMULTISIGVERIFY)

	case fragHash:
		b.AddOp(txscript.OP_SIZE)
		b.AddInt64(preimageLen)
		b.AddOp(txscript.OP_EQUALVERIFY)
		b.AddOp(txscript.OP_SHA256)
		b.AddData(n.hash[:])
		checkOp(txscript.OP_EQUAL, txscript.OP_EQUALVERIFY)

	case fragOlder:
		b.AddInt64(int64(n.lockTime))
		b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)

	case fragAndV:
		if err := n.args[0].build(b, false); err != nil {
			return err
		}
		return n.args[1].build(b, verify)

	case fragOrD:
		if err := n.args[0].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_IFDUP)
		b.AddOp(txscript.OP_NOTIF)
		if err := n.args[1].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_ENDIF)

	case fragOrI:
		b.AddOp(txscript.OP_IF)
		if err := n.args[0].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_ELSE)
		if err := n.args[1].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_ENDIF)

	case fragThresh:
		for i, arg := range n.args {
			if err := arg.build(b, false); err != nil {
				return err
			}
			if i > 0 {
				b.AddOp(txscript.OP_ADD)
			}
		}
		b.AddInt64(int64(n.k))
		checkOp(txscript.OP_EQUAL, txscript.OP_EQUALVERIFY)

	case wrapVerify:
		x := n.args[0]
		if err := x.build(b, x.props.canCollapseVerify); err != nil {
			return err
		}
		if !x.props.canCollapseVerify {
			b.AddOp(txscript.OP_VERIFY)
		}

	case wrapNonZero:
		if err := n.args[0].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_0NOTEQUAL)

	case wrapDissat:
		b.AddOp(txscript.OP_IF)
		if err := n.args[0].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_ELSE)
		b.AddOp(txscript.OP_0)
		b.AddOp(txscript.OP_ENDIF)

	case wrapAlt:
		b.AddOp(txscript.OP_TOALTSTACK)
		if err := n.args[0].build(b, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_FROMALTSTACK)

	case wrapSwap:
		b.AddOp(txscript.OP_SWAP)
		return n.args[0].build(b, verify)

	case fragWpkh:
		b.AddOp(txscript.OP_0)
		b.AddData(btcutil.Hash160(n.keys[0].Bytes()))

	case fragSh:
		b.AddOp(txscript.OP_HASH160)
		b.AddData(btcutil.Hash160(n.inner))
		b.AddOp(txscript.OP_EQUAL)

	case fragWsh:
		b.AddOp(txscript.OP_0)
		b.AddData(chainhash.HashB(n.inner))

	default:
		str := fmt.Sprintf("unknown fragment: %v", n.frag)
		return descriptor.NewError(descriptor.ErrInvalidProgram, str)
	}

	return nil
}
