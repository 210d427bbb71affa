// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package program

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcdescriptor/descriptor"
	"github.com/stretchr/testify/require"
)

// testRedeem spends an output paying to prog with a witness produced by the
// satisfier and runs it through the script engine.  signers are the private
// keys that are willing to sign.
func testRedeem(t *testing.T, prog *Program,
	signers map[descriptor.PubKey]*btcec.PrivateKey,
	preimages map[chainhash.Hash][]byte, sequence uint32) error {

	t.Logf("Program %v: %d bytes, %d ops", prog, prog.ScriptLen(),
		prog.OpCount())

	utxoAmount := int64(999799)
	utxoPkScript := prog.Serialize()

	// Our test spend is a 1-input 1-output transaction. The output is an
	// OP_RETURN burn output.
	burnPkScript, err := txscript.NullDataScript(nil)
	if err != nil {
		return err
	}

	// Dummy prevout.
	txInput := wire.NewTxIn(&wire.OutPoint{}, nil, nil)
	txInput.Sequence = sequence

	transaction := wire.MsgTx{
		Version: 2,
		TxIn:    []*wire.TxIn{txInput},
		TxOut: []*wire.TxOut{{
			Value:    utxoAmount - 200,
			PkScript: burnPkScript,
		}},
		LockTime: 0,
	}
	inputIndex := 0

	previousOutputs := txscript.NewCannedPrevOutputFetcher(
		utxoPkScript, utxoAmount,
	)
	// Nested segwit outputs sign the script of the wrapped wsh or wpkh
	// node.
	witnessScript := prog.Script()
	nested := prog.root.frag == fragSh
	if nested {
		witnessScript = prog.root.args[0].inner
	}

	sigHashes := txscript.NewTxSigHashes(&transaction, previousOutputs)
	signatureHash, err := txscript.CalcWitnessSigHash(
		witnessScript, sigHashes, txscript.SigHashAll, &transaction,
		inputIndex, utxoAmount,
	)
	if err != nil {
		return err
	}

	sigs := make(map[descriptor.PubKey]Signature, len(signers))
	for key, priv := range signers {
		sigs[key] = Signature{
			Sig:      ecdsa.Sign(priv, signatureHash),
			HashType: txscript.SigHashAll,
		}
	}

	witness, err := prog.Satisfy(&Evidence{
		Signatures: sigs,
		Preimages:  preimages,
		Age:        sequence,
	})
	if err != nil {
		return err
	}

	// The redeem script of a nested output goes in the signature script.
	if nested {
		redeemScript := witness[len(witness)-1]
		witness = witness[:len(witness)-1]
		sigScript, err := txscript.NewScriptBuilder().
			AddData(redeemScript).Script()
		if err != nil {
			return err
		}
		transaction.TxIn[inputIndex].SignatureScript = sigScript
	}

	// Put the created witness into the transaction input, then execute the
	// script to test that the UTXO can be spent successfully.
	transaction.TxIn[inputIndex].Witness = witness
	engine, err := txscript.NewEngine(
		utxoPkScript, &transaction, inputIndex,
		txscript.StandardVerifyFlags, nil, sigHashes, utxoAmount,
		previousOutputs,
	)
	if err != nil {
		return err
	}
	if err := engine.Execute(); err != nil {
		return err
	}

	var rawTx bytes.Buffer
	require.NoError(t, transaction.Serialize(&rawTx))
	t.Logf("Raw transaction: %x", rawTx.Bytes())
	return nil
}

type redeemTestVectors struct {
	Preimage  string           `json:"preimage"`
	TestCases []redeemTestCase `json:"test_cases"`
}

type redeemTestCase struct {
	Descriptor  string `json:"descriptor"`
	Comment     string `json:"comment"`
	Valid       bool   `json:"valid"`
	Age         uint32 `json:"age,omitempty"`
	Signers     string `json:"signers,omitempty"`
	HasPreimage bool   `json:"has_preimage,omitempty"`
}

// TestRedeem tests that the witnesses produced for compiled descriptors are
// accepted by the script engine.
func TestRedeem(t *testing.T) {
	t.Parallel()

	fileBytes, err := os.ReadFile(filepath.Join("testdata", "redeem.json"))
	require.NoError(t, err)

	vec := &redeemTestVectors{}
	require.NoError(t, json.Unmarshal(fileBytes, vec))

	preimage, err := hex.DecodeString(vec.Preimage)
	require.NoError(t, err)
	digest := chainhash.HashH(preimage)

	privs, keys := testKeys(t, 8)

	for _, test := range vec.TestCases {
		test := test
		name := test.Descriptor + " " + test.Comment
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			text := strings.ReplaceAll(
				test.Descriptor, "HASH",
				hex.EncodeToString(digest[:]),
			)
			prog := mustCompile(t, text, keys)
			require.NoError(t, prog.CheckStandard())

			signers := make(map[descriptor.PubKey]*btcec.PrivateKey)
			for _, signer := range test.Signers {
				i := strings.IndexRune(testKeyNames, signer)
				require.GreaterOrEqual(t, i, 0)
				signers[keys[i]] = privs[i]
			}

			var preimages map[chainhash.Hash][]byte
			if test.HasPreimage {
				preimages = map[chainhash.Hash][]byte{
					digest: preimage,
				}
			}

			err := testRedeem(t, prog, signers, preimages, test.Age)
			if test.Valid {
				require.NoError(t, err)
				return
			}
			require.True(t, descriptor.IsErrorCode(
				err, descriptor.ErrUnsatisfied,
			), "unexpected error: %v", err)
		})
	}
}
