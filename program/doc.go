// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package program compiles descriptors into bitcoin scripts and produces the
witnesses which satisfy them.

Compile lowers every descriptor node to a miniscript fragment.  and(X,Y)
becomes and_v(v:X,Y) with the operands ordered so that the first ends in a
check with a VERIFY form.  or(X,Y) and aor(X,Y) become or_d(X,Y) when X is
natively dissatisfiable and or_i(X,Y) otherwise.  thres(k,...) becomes
thresh with each argument wrapped to leave exactly 0 or 1.

Satisfy walks the compiled tree with the signatures, preimages and input age
known to the caller and returns the smallest witness which the script
accepts, with element 0 at the bottom of the stack.
*/
package program
