// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcdescriptor/descriptor"
)

// Branch probabilities of the left operand of or and aor.
const (
	symmetricOrWeight  = 0.5
	asymmetricOrWeight = 1.0
)

// Compile lowers a concrete descriptor into a Program.  Compilation is
// deterministic and never fails for descriptors built by the parser or the
// descriptor constructors.
func Compile(d *descriptor.Descriptor[descriptor.PubKey]) (*Program, error) {
	if d == nil {
		return nil, descriptor.NewError(descriptor.ErrInvalidProgram,
			"nil descriptor")
	}

	root, err := compile(d, true)
	if err != nil {
		return nil, err
	}
	script, err := buildScript(root)
	if err != nil {
		return nil, err
	}

	log.Debugf("Compiled %v to %v (%d script bytes)", d, root,
		len(script))
	log.Tracef("%v", newLogClosure(func() string {
		disasm, _ := txscript.DisasmString(script)
		return disasm
	}))

	return &Program{
		root:   root,
		desc:   d,
		script: script,
	}, nil
}

// compile lowers d to a node.  top is set for the outermost descriptor and
// the child of sh, the only places the output wrappers may appear.
func compile(d *descriptor.Descriptor[descriptor.PubKey], top bool) (*node,
	error) {

	if d == nil {
		return nil, descriptor.NewError(descriptor.ErrInvalidProgram,
			"missing sub-descriptor")
	}

	switch d.Kind() {
	case descriptor.KindKey:
		return analyze(&node{frag: fragPk, desc: d, keys: d.Keys()})

	case descriptor.KindKeyHash:
		return analyze(&node{frag: fragPkh, desc: d, keys: d.Keys()})

	case descriptor.KindMulti:
		return analyze(&node{
			frag: fragMulti,
			desc: d,
			k:    d.Threshold(),
			keys: d.Keys(),
		})

	case descriptor.KindHash:
		return analyze(&node{frag: fragHash, desc: d, hash: d.Hash()})

	case descriptor.KindTime:
		return analyze(&node{
			frag:     fragOlder,
			desc:     d,
			lockTime: d.LockTime(),
		})

	case descriptor.KindAnd:
		return compileAnd(d)

	case descriptor.KindOr:
		return compileOr(d, symmetricOrWeight)

	case descriptor.KindAsymmetricOr:
		return compileOr(d, asymmetricOrWeight)

	case descriptor.KindThreshold:
		return compileThresh(d)
	}

	if !top {
		str := fmt.Sprintf("%v is only valid at the top level", d.Kind())
		return nil, descriptor.NewError(descriptor.ErrInvalidProgram, str)
	}

	switch d.Kind() {
	case descriptor.KindWpkh:
		code, err := scriptCode(d.Keys())
		if err != nil {
			return nil, err
		}
		return analyze(&node{
			frag:  fragWpkh,
			desc:  d,
			keys:  d.Keys(),
			inner: code,
		})

	case descriptor.KindSh, descriptor.KindWsh:
		subs := d.Subs()
		if len(subs) != 1 {
			str := fmt.Sprintf("%v expects 1 argument, got %d",
				d.Kind(), len(subs))
			return nil, descriptor.NewError(
				descriptor.ErrInvalidProgram, str,
			)
		}

		frag := fragWsh
		if d.Kind() == descriptor.KindSh {
			frag = fragSh
		}

		// Only sh may wrap another output descriptor.
		sub, err := compile(subs[0], frag == fragSh)
		if err != nil {
			return nil, err
		}
		inner, err := buildScript(sub)
		if err != nil {
			return nil, err
		}
		return analyze(&node{
			frag:  frag,
			desc:  d,
			args:  []*node{sub},
			inner: inner,
		})
	}

	str := fmt.Sprintf("unknown descriptor kind %v", d.Kind())
	return nil, descriptor.NewError(descriptor.ErrInvalidProgram, str)
}

// scriptCode returns the pay-to-pubkey-hash script executed for a wpkh
// output.
func scriptCode(keys []descriptor.PubKey) ([]byte, error) {
	pkh, err := analyze(&node{frag: fragPkh, keys: keys})
	if err != nil {
		return nil, err
	}
	return buildScript(pkh)
}

func compileBinary(d *descriptor.Descriptor[descriptor.PubKey]) (*node, *node,
	error) {

	subs := d.Subs()
	if len(subs) != 2 {
		str := fmt.Sprintf("%v expects 2 arguments, got %d", d.Kind(),
			len(subs))
		return nil, nil, descriptor.NewError(
			descriptor.ErrInvalidProgram, str,
		)
	}
	l, err := compile(subs[0], false)
	if err != nil {
		return nil, nil, err
	}
	r, err := compile(subs[1], false)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// compileAnd lowers and(l,r) to and_v(v:X,Y).  Both operand orders are
// tried and the shorter script wins, which puts an operand ending in a
// check with a VERIFY form first.  Ties keep the written order.
func compileAnd(d *descriptor.Descriptor[descriptor.PubKey]) (*node, error) {
	l, r, err := compileBinary(d)
	if err != nil {
		return nil, err
	}

	andV := func(x, y *node) (*node, error) {
		v, err := analyze(&node{
			frag: wrapVerify,
			desc: x.desc,
			args: []*node{x},
		})
		if err != nil {
			return nil, err
		}
		return analyze(&node{
			frag: fragAndV,
			desc: d,
			args: []*node{v, y},
		})
	}

	inOrder, err := andV(l, r)
	if err != nil {
		return nil, err
	}
	swapped, err := andV(r, l)
	if err != nil {
		return nil, err
	}
	if swapped.scriptLen < inOrder.scriptLen {
		log.Tracef("Reordered %v to save %d bytes", d,
			inOrder.scriptLen-swapped.scriptLen)
		return swapped, nil
	}
	return inOrder, nil
}

// compileOr lowers or(l,r) and aor(l,r).  The or_d layout is used unless
// the left operand needs extra wrapping to be dissatisfiable, in which case
// the shorter or_i layout is used.  pLeft only affects the expected
// satisfaction size.
func compileOr(d *descriptor.Descriptor[descriptor.PubKey], pLeft float64) (
	*node, error) {

	x, z, err := compileBinary(d)
	if err != nil {
		return nil, err
	}

	xd, err := dissatisfiableUnit(x)
	if err != nil {
		return nil, err
	}
	orD, err := analyze(&node{
		frag:  fragOrD,
		desc:  d,
		args:  []*node{xd, z},
		pLeft: pLeft,
	})
	if err != nil {
		return nil, err
	}
	orI, err := analyze(&node{
		frag:  fragOrI,
		desc:  d,
		args:  []*node{x, z},
		pLeft: pLeft,
	})
	if err != nil {
		return nil, err
	}

	if orI.scriptLen < orD.scriptLen {
		log.Tracef("Using or_i for %v, or_d needs %d more bytes", d,
			orD.scriptLen-orI.scriptLen)
		return orI, nil
	}
	return orD, nil
}

// compileThresh lowers thres(k,X1,...,Xn) to thresh.  Every argument is
// turned into a dissatisfiable unit.  The arguments after the first are
// reached with SWAP when they consume a single element and through the alt
// stack otherwise.
func compileThresh(d *descriptor.Descriptor[descriptor.PubKey]) (*node,
	error) {

	subs := d.Subs()
	args := make([]*node, 0, len(subs))
	for i, sub := range subs {
		n, err := compile(sub, false)
		if err != nil {
			return nil, err
		}
		n, err = dissatisfiableUnit(n)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			wrapper := wrapAlt
			if n.props.single {
				wrapper = wrapSwap
			}
			n, err = analyze(&node{
				frag: wrapper,
				desc: n.desc,
				args: []*node{n},
			})
			if err != nil {
				return nil, err
			}
		}
		args = append(args, n)
	}

	return analyze(&node{
		frag: fragThresh,
		desc: d,
		k:    d.Threshold(),
		args: args,
	})
}

// dissatisfiableUnit wraps n so that it leaves exactly 0 or 1 and has a
// dissatisfaction, as required by the IFDUP NOTIF and ADD sequences.
func dissatisfiableUnit(n *node) (*node, error) {
	var err error
	if !n.props.unit {
		n, err = analyze(&node{
			frag: wrapNonZero,
			desc: n.desc,
			args: []*node{n},
		})
		if err != nil {
			return nil, err
		}
	}
	if !n.props.dissatisfiable {
		n, err = analyze(&node{
			frag: wrapDissat,
			desc: n.desc,
			args: []*node{n},
		})
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}
