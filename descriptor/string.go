// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// String renders the descriptor in the grammar accepted by Parse.  Children
// are separated by a single comma without surrounding spaces.
func (d *Descriptor[K]) String() string {
	var b strings.Builder
	d.write(&b)
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d *Descriptor[K]) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Descriptor[K]) write(b *strings.Builder) {
	b.WriteString(d.kind.String())
	b.WriteByte('(')

	switch d.kind {
	case KindKey, KindKeyHash, KindWpkh:
		b.WriteString(d.keys[0].String())

	case KindMulti:
		b.WriteString(strconv.Itoa(d.k))
		for _, key := range d.keys {
			b.WriteByte(',')
			b.WriteString(key.String())
		}

	case KindHash:
		b.WriteString(hex.EncodeToString(d.hash[:]))

	case KindTime:
		b.WriteString(strconv.FormatUint(uint64(d.lockTime), 10))

	case KindThreshold:
		b.WriteString(strconv.Itoa(d.k))
		for _, sub := range d.subs {
			b.WriteByte(',')
			sub.write(b)
		}

	default:
		for i, sub := range d.subs {
			if i > 0 {
				b.WriteByte(',')
			}
			sub.write(b)
		}
	}

	b.WriteByte(')')
}
