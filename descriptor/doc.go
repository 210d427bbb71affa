// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package descriptor implements an algebra of bitcoin spending conditions along
with its text grammar.

A Descriptor is an immutable tree over a key type.  Trees over KeyName hold
abstract placeholders, trees over PubKey hold compressed secp256k1 public
keys.  Instantiate and MapKeys turn the former into the latter.

Grammar

	pk(K)            signature of K
	pkh(K)           K revealed by its hash, then a signature of K
	multi(k,K1,..)   k of the listed keys sign
	hash(H)          the SHA256 preimage of H, 64 hex digits
	time(n)          the input's relative lock time is at least n
	thres(k,X1,..)   k of the sub-descriptors are satisfied
	and(X,Y)         both X and Y
	or(X,Y)          X or Y
	aor(X,Y)         X or Y, Y expected to be rare
	wpkh(K)          pay to witness pubkey hash
	sh(X)            pay to script hash
	wsh(X)           pay to witness script hash

wpkh, sh and wsh may only appear at the top level, with sh(wsh(X)) and
sh(wpkh(K)) the only nestings.  Spaces between tokens are ignored.  The n of
time(n) is a BIP68 relative lock time: blocks below 65536, or 512 second
units with the 1<<22 type flag set.

Errors

Errors returned by this package and the program package are of type Error
and carry an ErrorCode.  IsErrorCode tests for a code through any wrapping.
*/
package descriptor
