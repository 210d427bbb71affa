// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
)

const (
	// minPrintable and maxPrintable bound the bytes accepted in
	// descriptor text.
	minPrintable = 20
	maxPrintable = 127
)

// rawTree is an untyped expression `name(arg,...)` or a bare token.  The
// name is kept as an offset and length into the parsed text so errors can
// point at the exact source position.
type rawTree struct {
	pos  int
	len  int
	args []*rawTree
}

// name returns the (space trimmed) token of the node within s.
func (t *rawTree) name(s string) string {
	return s[t.pos : t.pos+t.len]
}

// isLeaf returns whether the node is a bare token without arguments.
func (t *rawTree) isLeaf() bool {
	return len(t.args) == 0
}

// trimSpan strips surrounding spaces from s[start:end] and returns the
// remaining offset and length.
func trimSpan(s string, start, end int) (int, int) {
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return start, end - start
}

// parseRawTree scans s starting at pos for the first '(', ',' or ')' and
// builds the raw tree of the expression found there.  It returns the tree
// and the offset of the first byte not consumed.
func parseRawTree(s string, pos int) (*rawTree, int, error) {
	delim := -1
	for i := pos; i < len(s); i++ {
		if c := s[i]; c == '(' || c == ',' || c == ')' {
			delim = i
			break
		}
	}
	if delim < 0 {
		return nil, 0, expectedChar(')', len(s))
	}

	namePos, nameLen := trimSpan(s, pos, delim)
	node := &rawTree{pos: namePos, len: nameLen}
	if s[delim] != '(' {
		// Terminal token, the delimiter belongs to the parent.
		return node, delim, nil
	}

	pos = delim + 1
	for {
		arg, next, err := parseRawTree(s, pos)
		if err != nil {
			return nil, 0, err
		}
		node.args = append(node.args, arg)

		for next < len(s) && s[next] == ' ' {
			next++
		}
		if next >= len(s) {
			return nil, 0, expectedChar(')', next)
		}
		pos = next + 1
		switch s[next] {
		case ',':
		case ')':
			return node, pos, nil
		default:
			return nil, 0, expectedChar(',', next)
		}
	}
}

// expectedChar returns the error for a missing delimiter at offset pos.
func expectedChar(c byte, pos int) Error {
	str := fmt.Sprintf("expected character '%c' at offset %d", c, pos)
	return descError(ErrExpectedChar, str)
}

// unexpected returns the syntax error naming an offending token.
func unexpected(s string, t *rawTree, reason string) Error {
	str := fmt.Sprintf("unexpected token %q at offset %d", t.name(s),
		t.pos)
	if reason != "" {
		str += ": " + reason
	}
	return descError(ErrSyntax, str)
}

// Parse parses descriptor text into a tree whose keys are decoded with
// parseKey.
func Parse[K Key](s string, parseKey KeyParser[K]) (*Descriptor[K], error) {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < minPrintable || c > maxPrintable {
			str := fmt.Sprintf("unprintable byte 0x%02x at offset "+
				"%d", c, i)
			return nil, descError(ErrUnprintable, str)
		}
	}

	top, rem, err := parseRawTree(s, 0)
	if err != nil {
		return nil, err
	}
	if rest := s[rem:]; rest != "" {
		str := fmt.Sprintf("unexpected token %q at offset %d", rest,
			rem)
		return nil, descError(ErrSyntax, str)
	}
	log.Tracef("raw descriptor tree: %v", newLogClosure(func() string {
		return spew.Sdump(top)
	}))

	p := &parser[K]{s: s, parseKey: parseKey}
	return p.fromTree(top, true)
}

// ParseAbstract parses a descriptor whose keys are placeholders.
func ParseAbstract(s string) (*Descriptor[KeyName], error) {
	return Parse(s, ParseKeyName)
}

// ParseConcrete parses a descriptor whose keys are hex encoded compressed
// public keys.
func ParseConcrete(s string) (*Descriptor[PubKey], error) {
	return Parse(s, ParsePubKey)
}

// parser interprets raw trees as descriptors.
type parser[K Key] struct {
	s        string
	parseKey KeyParser[K]
}

// leaf returns the token of a bare argument, rejecting nested calls.
func (p *parser[K]) leaf(t *rawTree) (string, error) {
	if !t.isLeaf() {
		return "", unexpected(p.s, t.args[0], "")
	}
	if t.len == 0 {
		return "", unexpected(p.s, t, "empty argument")
	}
	return t.name(p.s), nil
}

// key parses a leaf as a key.
func (p *parser[K]) key(t *rawTree) (K, error) {
	var zero K
	tok, err := p.leaf(t)
	if err != nil {
		return zero, err
	}
	key, err := p.parseKey(tok)
	if err != nil {
		return zero, unexpected(p.s, t, err.Error())
	}
	return key, nil
}

// number parses a leaf as an unsigned 32-bit decimal integer.
func (p *parser[K]) number(t *rawTree) (uint32, error) {
	tok, err := p.leaf(t)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, unexpected(p.s, t, "not an unsigned 32-bit integer")
	}
	return uint32(n), nil
}

// digest parses a leaf as the hex encoding of a 32 byte digest.
func (p *parser[K]) digest(t *rawTree) (chainhash.Hash, error) {
	var h chainhash.Hash
	tok, err := p.leaf(t)
	if err != nil {
		return h, err
	}
	b, err := hex.DecodeString(tok)
	if err != nil || len(b) != chainhash.HashSize {
		return h, unexpected(p.s, t, fmt.Sprintf("not a %d byte hex "+
			"digest", chainhash.HashSize))
	}
	copy(h[:], b)
	return h, nil
}

// threshold parses the k argument of multi and thres and checks it against
// the number n of remaining arguments.  k must be at least one and strictly
// smaller than n.
func (p *parser[K]) threshold(t *rawTree, n int) (int, error) {
	k, err := p.number(t)
	if err != nil {
		return 0, err
	}
	if k == 0 || int64(k) >= int64(n) {
		return 0, unexpected(p.s, t, fmt.Sprintf("threshold must "+
			"be between 1 and %d", n-1))
	}
	return int(k), nil
}

// fromTree interprets a raw tree node.  top is true for the outermost
// expression, the only place output wrappers may appear.
func (p *parser[K]) fromTree(t *rawTree, top bool) (*Descriptor[K], error) {
	name, args := t.name(p.s), t.args
	nargs := len(args)

	switch {
	case name == "pk" && nargs == 1:
		key, err := p.key(args[0])
		if err != nil {
			return nil, err
		}
		return NewKey(key), nil

	case name == "pkh" && nargs == 1:
		key, err := p.key(args[0])
		if err != nil {
			return nil, err
		}
		return NewKeyHash(key), nil

	case name == "wpkh" && nargs == 1:
		key, err := p.key(args[0])
		if err != nil {
			return nil, err
		}
		return NewWpkh(key), nil

	case name == "multi" && nargs >= 2:
		for _, arg := range args {
			if !arg.isLeaf() {
				return nil, unexpected(p.s, arg.args[0], "")
			}
		}
		k, err := p.threshold(args[0], nargs-1)
		if err != nil {
			return nil, err
		}
		keys := make([]K, 0, nargs-1)
		for _, arg := range args[1:] {
			key, err := p.key(arg)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		return NewMulti(k, keys)

	case name == "hash" && nargs == 1:
		h, err := p.digest(args[0])
		if err != nil {
			return nil, err
		}
		return NewHash[K](h), nil

	case name == "time" && nargs == 1:
		n, err := p.number(args[0])
		if err != nil {
			return nil, err
		}
		if err := checkLockTime(n); err != nil {
			return nil, unexpected(p.s, args[0], err.Error())
		}
		return NewTime[K](n)

	case name == "thres" && nargs >= 2:
		k, err := p.threshold(args[0], nargs-1)
		if err != nil {
			return nil, err
		}
		subs := make([]*Descriptor[K], 0, nargs-1)
		for _, arg := range args[1:] {
			sub, err := p.fromTree(arg, false)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		return NewThreshold(k, subs)

	case (name == "and" || name == "or" || name == "aor") && nargs == 2:
		left, err := p.fromTree(args[0], false)
		if err != nil {
			return nil, err
		}
		right, err := p.fromTree(args[1], false)
		if err != nil {
			return nil, err
		}
		switch name {
		case "and":
			return NewAnd(left, right)
		case "or":
			return NewOr(left, right)
		default:
			return NewAsymmetricOr(left, right)
		}

	case name == "sh" && nargs == 1:
		if !top {
			return nil, unexpected(p.s, t, "sh is only valid at "+
				"the top level")
		}
		// sh may wrap wsh and wpkh, so the child is parsed as if it
		// was at the top level.  NewSh rejects sh(sh(...)).
		sub, err := p.fromTree(args[0], true)
		if err != nil {
			return nil, err
		}
		return NewSh(sub)

	case name == "wsh" && nargs == 1:
		if !top {
			return nil, unexpected(p.s, t, "wsh is only valid at "+
				"the top level")
		}
		sub, err := p.fromTree(args[0], false)
		if err != nil {
			return nil, err
		}
		return NewWsh(sub)
	}

	return nil, unexpected(p.s, t, "")
}
