// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is wrapped by the ErrKeyMapping error MapKeys returns for a
// key without a mapping.
var ErrUnknownKey = errors.New("no mapping for key")

// Instantiate returns a copy of d with every key replaced by fn(key).  Keys
// are mapped left to right, depth first.  The first failure aborts the
// traversal and is returned wrapped in an ErrKeyMapping Error; errors.Is
// and errors.As see the error returned by fn.
func Instantiate[A, C Key](d *Descriptor[A], fn func(A) (C, error)) (
	*Descriptor[C], error) {

	out := &Descriptor[C]{
		kind:     d.kind,
		k:        d.k,
		hash:     d.hash,
		lockTime: d.lockTime,
	}

	if len(d.keys) > 0 {
		out.keys = make([]C, 0, len(d.keys))
		for _, key := range d.keys {
			mapped, err := fn(key)
			if err != nil {
				str := fmt.Sprintf("unable to map key %s in %s",
					key, d.kind)
				return nil, Error{
					ErrorCode:   ErrKeyMapping,
					Description: str,
					Err:         err,
				}
			}
			out.keys = append(out.keys, mapped)
		}
	}

	if len(d.subs) > 0 {
		out.subs = make([]*Descriptor[C], 0, len(d.subs))
		for _, sub := range d.subs {
			mapped, err := Instantiate(sub, fn)
			if err != nil {
				return nil, err
			}
			out.subs = append(out.subs, mapped)
		}
	}

	return out, nil
}

// MapKeys instantiates d from a fixed lookup table.
func MapKeys[A, C Key](d *Descriptor[A], keys map[A]C) (*Descriptor[C],
	error) {

	return Instantiate(d, func(key A) (C, error) {
		mapped, ok := keys[key]
		if !ok {
			return mapped, ErrUnknownKey
		}
		return mapped, nil
	})
}
