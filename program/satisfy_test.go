// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"encoding/hex"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcdescriptor/descriptor"
	"github.com/stretchr/testify/require"
)

// fakeSig returns a well formed signature which all have the same length.
// Only the serialization matters to the satisfier.
func fakeSig(i int) Signature {
	var r, s btcec.ModNScalar
	r.SetInt(uint32(i + 1))
	s.SetInt(1)
	return Signature{
		Sig:      ecdsa.NewSignature(&r, &s),
		HashType: txscript.SigHashAll,
	}
}

// fakeSigs returns signatures for the keys at the given indexes.
func fakeSigs(keys []descriptor.PubKey,
	idx ...int) map[descriptor.PubKey]Signature {

	sigs := make(map[descriptor.PubKey]Signature, len(idx))
	for _, i := range idx {
		sigs[keys[i]] = fakeSig(i)
	}
	return sigs
}

func sigBytes(i int) []byte {
	return fakeSig(i).Serialize()
}

// TestSatisfyLiquid checks both branches of the Liquid peg-out script.
func TestSatisfyLiquid(t *testing.T) {
	t.Parallel()

	_, keys := testKeys(t, 8)
	prog := mustCompile(t, liquidDescriptor, keys)

	tests := []struct {
		name    string
		signers []int
		age     uint32
		want    wire.TxWitness
	}{{
		name:    "two of the first five",
		signers: []int{0, 1},
		age:     0,
	}, {
		name:    "three of the first five",
		signers: []int{0, 1, 2},
		age:     0,
		want: wire.TxWitness{
			{}, sigBytes(0), sigBytes(1), sigBytes(2),
		},
	}, {
		name:    "first signers in key order",
		signers: []int{4, 3, 2, 1},
		age:     0,
		want: wire.TxWitness{
			{}, sigBytes(1), sigBytes(2), sigBytes(3),
		},
	}, {
		name:    "emergency branch is smaller",
		signers: []int{0, 1, 2, 5, 6},
		age:     10000,
		want: wire.TxWitness{
			{}, sigBytes(5), sigBytes(6), {}, {}, {}, {},
		},
	}, {
		name:    "emergency branch not matured",
		signers: []int{5, 6},
		age:     9999,
	}, {
		name:    "emergency branch only",
		signers: []int{6, 7},
		age:     10001,
		want: wire.TxWitness{
			{}, sigBytes(6), sigBytes(7), {}, {}, {}, {},
		},
	}, {
		name:    "age in seconds does not match blocks",
		signers: []int{5, 6},
		age:     wire.SequenceLockTimeIsSeconds | 10000,
	}}

	for _, test := range tests {
		witness, err := prog.Satisfy(&Evidence{
			Signatures: fakeSigs(keys, test.signers...),
			Age:        test.age,
		})
		if test.want == nil {
			require.Error(t, err, test.name)
			require.True(t, descriptor.IsErrorCode(
				err, descriptor.ErrUnsatisfied,
			), test.name)
			require.Nil(t, witness, test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, witness, test.name)
	}
}

// TestSatisfyLeaves checks the witnesses of single leaves and their
// dissatisfactions inside an or.
func TestSatisfyLeaves(t *testing.T) {
	t.Parallel()

	_, keys := testKeys(t, 3)
	preimage := make([]byte, 32)
	preimage[0] = 1
	digest := chainhash.HashH(preimage)

	// chainhash prints digests byte reversed, the grammar does not.
	hashDesc := "hash(" + hex.EncodeToString(digest[:]) + ")"

	tests := []struct {
		name      string
		desc      string
		signers   []int
		preimages map[chainhash.Hash][]byte
		age       uint32
		want      wire.TxWitness
	}{{
		name:    "pk",
		desc:    "pk(A)",
		signers: []int{0},
		want:    wire.TxWitness{sigBytes(0)},
	}, {
		name: "pk without signature",
		desc: "pk(A)",
	}, {
		name:    "pkh",
		desc:    "pkh(B)",
		signers: []int{1},
		want:    wire.TxWitness{sigBytes(1), keys[1].Bytes()},
	}, {
		name:    "multi placeholder first",
		desc:    "multi(2,A,B,C)",
		signers: []int{2, 0},
		want:    wire.TxWitness{{}, sigBytes(0), sigBytes(2)},
	}, {
		name:      "hash",
		desc:      hashDesc,
		preimages: map[chainhash.Hash][]byte{digest: preimage},
		want:      wire.TxWitness{preimage},
	}, {
		name: "hash without preimage",
		desc: hashDesc,
	}, {
		name: "time matured",
		desc: "time(10)",
		age:  10,
		want: wire.TxWitness{},
	}, {
		name: "time not matured",
		desc: "time(10)",
		age:  9,
	}, {
		name:    "or_d right with pk filler",
		desc:    "or(pk(A),pk(B))",
		signers: []int{1},
		want:    wire.TxWitness{sigBytes(1), {}},
	}, {
		name:    "or_d smaller left",
		desc:    "or(pk(A),pkh(B))",
		signers: []int{0, 1},
		want:    wire.TxWitness{sigBytes(0)},
	}, {
		name:    "or_d hash filler",
		desc:    "or(" + hashDesc + ",pk(A))",
		signers: []int{0},
		want:    wire.TxWitness{sigBytes(0), make([]byte, 32)},
	}, {
		name:    "or_d multi filler",
		desc:    "or(multi(2,A,B,C),pk(C))",
		signers: []int{2},
		want:    wire.TxWitness{sigBytes(2), {}, {}, {}},
	}, {
		name:    "or_i left",
		desc:    "or(time(10),pk(A))",
		signers: []int{0},
		age:     10,
		want:    wire.TxWitness{{1}},
	}, {
		name:    "or_i right",
		desc:    "or(time(10),pk(A))",
		signers: []int{0},
		age:     5,
		want:    wire.TxWitness{sigBytes(0), {}},
	}, {
		name:    "and needs both",
		desc:    "and(pk(A),time(10))",
		signers: []int{0},
		age:     5,
	}, {
		name:    "and",
		desc:    "and(time(10),pk(A))",
		signers: []int{0},
		age:     10,
		want:    wire.TxWitness{sigBytes(0)},
	}, {
		name:    "and witness order",
		desc:    "and(pk(A),pkh(B))",
		signers: []int{0, 1},
		want: wire.TxWitness{
			sigBytes(1), keys[1].Bytes(), sigBytes(0),
		},
	}, {
		name:    "wsh",
		desc:    "wsh(pk(A))",
		signers: []int{0},
		want: wire.TxWitness{
			sigBytes(0), mustCompile(t, "pk(A)", keys).Script(),
		},
	}, {
		name:    "wpkh",
		desc:    "wpkh(C)",
		signers: []int{2},
		want:    wire.TxWitness{sigBytes(2), keys[2].Bytes()},
	}, {
		name:    "sh wpkh",
		desc:    "sh(wpkh(C))",
		signers: []int{2},
		want: wire.TxWitness{
			sigBytes(2), keys[2].Bytes(),
			mustCompile(t, "wpkh(C)", keys).Serialize(),
		},
	}, {
		name:    "sh wsh",
		desc:    "sh(wsh(pk(A)))",
		signers: []int{0},
		want: wire.TxWitness{
			sigBytes(0), mustCompile(t, "pk(A)", keys).Script(),
			mustCompile(t, "wsh(pk(A))", keys).Serialize(),
		},
	}}

	for _, test := range tests {
		prog := mustCompile(t, test.desc, keys)
		witness, err := prog.Satisfy(&Evidence{
			Signatures: fakeSigs(keys, test.signers...),
			Preimages:  test.preimages,
			Age:        test.age,
		})
		if test.want == nil {
			require.True(t, descriptor.IsErrorCode(
				err, descriptor.ErrUnsatisfied,
			), test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, witness, test.name)
		require.LessOrEqual(t, witness.SerializeSize(),
			prog.MaxWitnessSize(), test.name)
		require.LessOrEqual(t, len(witness), prog.SatisfyElements(),
			test.name)
	}
}

// TestSatisfyBadPreimage makes sure a preimage of the wrong length only
// rules out its own branch.
func TestSatisfyBadPreimage(t *testing.T) {
	t.Parallel()

	_, keys := testKeys(t, 1)
	preimage := []byte("short")
	digest := chainhash.HashH(preimage)
	hash := "hash(" + hex.EncodeToString(digest[:]) + ")"
	preimages := map[chainhash.Hash][]byte{digest: preimage}

	prog := mustCompile(t, hash, keys)
	_, err := prog.Satisfy(&Evidence{Preimages: preimages})
	require.True(t, descriptor.IsErrorCode(err, descriptor.ErrUnsatisfied))

	// The other side of an or is still usable, with the hash
	// dissatisfied by 32 zero bytes.
	prog = mustCompile(t, "or("+hash+",pk(A))", keys)
	witness, err := prog.Satisfy(&Evidence{
		Signatures: fakeSigs(keys, 0),
		Preimages:  preimages,
	})
	require.NoError(t, err)
	require.Equal(t, wire.TxWitness{
		sigBytes(0), make([]byte, preimageLen),
	}, witness)

	prog = mustCompile(t, "thres(1,"+hash+",pk(A))", keys)
	witness, err = prog.Satisfy(&Evidence{
		Signatures: fakeSigs(keys, 0),
		Preimages:  preimages,
	})
	require.NoError(t, err)
	require.Equal(t, wire.TxWitness{
		sigBytes(0), make([]byte, preimageLen),
	}, witness)
}

// TestSatisfyThreshold checks the choice of satisfied arguments.
func TestSatisfyThreshold(t *testing.T) {
	t.Parallel()

	_, keys := testKeys(t, 3)
	prog := mustCompile(t, "thres(2,pk(A),pk(B),pk(C))", keys)

	tests := []struct {
		name    string
		signers []int
		want    wire.TxWitness
	}{{
		name:    "one signature",
		signers: []int{1},
	}, {
		name:    "first and last",
		signers: []int{0, 2},
		want:    wire.TxWitness{sigBytes(2), {}, sigBytes(0)},
	}, {
		name:    "earlier arguments win ties",
		signers: []int{0, 1, 2},
		want:    wire.TxWitness{{}, sigBytes(1), sigBytes(0)},
	}, {
		name:    "last two",
		signers: []int{1, 2},
		want:    wire.TxWitness{sigBytes(2), sigBytes(1), {}},
	}}

	for _, test := range tests {
		witness, err := prog.Satisfy(&Evidence{
			Signatures: fakeSigs(keys, test.signers...),
		})
		if test.want == nil {
			require.True(t, descriptor.IsErrorCode(
				err, descriptor.ErrUnsatisfied,
			), test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, witness, test.name)
	}

	// A time lock argument is satisfied with its IF selector.
	prog = mustCompile(t, "thres(1,pk(A),time(10))", keys)
	witness, err := prog.Satisfy(&Evidence{Age: 10})
	require.NoError(t, err)
	require.Equal(t, wire.TxWitness{{1}, {}}, witness)

	witness, err = prog.Satisfy(&Evidence{
		Signatures: fakeSigs(keys, 0),
		Age:        9,
	})
	require.NoError(t, err)
	require.Equal(t, wire.TxWitness{{}, sigBytes(0)}, witness)
}

// TestCheckOlder tests the relative lock time comparison.
func TestCheckOlder(t *testing.T) {
	t.Parallel()

	seconds := uint32(wire.SequenceLockTimeIsSeconds)
	tests := []struct {
		lockTime uint32
		sequence uint32
		want     bool
	}{
		{10, 10, true},
		{10, 11, true},
		{10, 9, false},
		{seconds | 10, seconds | 10, true},
		{seconds | 10, 10, false},
		{10, seconds | 10, false},
		{10, wire.SequenceLockTimeDisabled | 10, false},
		{10, wire.MaxTxInSequenceNum, false},
		// Bits outside the lock time mask are ignored.
		{1<<16 | 10, 10, true},
	}

	for i, test := range tests {
		require.Equal(t, test.want, CheckOlder(test.lockTime,
			test.sequence), "test %d", i)
	}
}

// TestSatisfyConcurrent satisfies one program from many goroutines with
// shared evidence.
func TestSatisfyConcurrent(t *testing.T) {
	t.Parallel()

	_, keys := testKeys(t, 8)
	prog := mustCompile(t, liquidDescriptor, keys)
	ev := &Evidence{
		Signatures: fakeSigs(keys, 0, 1, 2, 5, 6),
		Age:        10000,
	}
	want, err := prog.Satisfy(ev)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]wire.TxWitness, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = prog.Satisfy(ev)
		}(i)
	}
	wg.Wait()

	for _, witness := range results {
		require.Equal(t, want, witness)
	}
	require.Len(t, ev.Signatures, 5)
}
