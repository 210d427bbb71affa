// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcdescriptor/descriptor"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDebugLevel = "info"
)

var (
	activeNetParams = &chaincfg.MainNetParams
)

// config defines the configuration options for descutil.
//
// See loadConfig for details on the configuration load process.
type config struct {
	DebugLevel     string   `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	Keys           []string `short:"k" long:"key" description:"Map the abstract key NAME to a hex encoded compressed public key, as NAME=HEX -- may be repeated"`
	RegressionTest bool     `long:"regtest" description:"Use the regression test network"`
	SimNet         bool     `long:"simnet" description:"Use the simulation test network"`
	TestNet3       bool     `long:"testnet" description:"Use the test network"`

	Args struct {
		Descriptor string `positional-arg-name:"descriptor" description:"The descriptor to compile"`
	} `positional-args:"yes" required:"yes"`

	// keyMap is the parsed form of Keys.
	keyMap map[descriptor.KeyName]descriptor.PubKey
}

// parseKeys converts NAME=HEX pairs into a key lookup table.
func parseKeys(pairs []string) (map[descriptor.KeyName]descriptor.PubKey,
	error) {

	keys := make(map[descriptor.KeyName]descriptor.PubKey, len(pairs))
	for _, pair := range pairs {
		name, hexKey, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed key %q, expected "+
				"NAME=HEX", pair)
		}
		keyName, err := descriptor.ParseKeyName(name)
		if err != nil {
			return nil, err
		}
		if _, ok := keys[keyName]; ok {
			return nil, fmt.Errorf("key %q given more than once",
				name)
		}
		pubKey, err := descriptor.ParsePubKey(hexKey)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		keys[keyName] = pubKey
	}
	return keys, nil
}

// loadConfig initializes and parses the config using command line options.
func loadConfig(args []string) (*config, error) {
	// Default config.
	cfg := config{
		DebugLevel: defaultDebugLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, err
	}

	// Multiple networks can't be selected simultaneously.
	funcName := "loadConfig"
	numNets := 0
	// Count number of network flags passed; assign active network params
	// while we're at it
	if cfg.TestNet3 {
		numNets++
		activeNetParams = &chaincfg.TestNet3Params
	}
	if cfg.RegressionTest {
		numNets++
		activeNetParams = &chaincfg.RegressionNetParams
	}
	if cfg.SimNet {
		numNets++
		activeNetParams = &chaincfg.SimNetParams
	}
	if numNets > 1 {
		str := "%s: The testnet, regtest, and simnet params can't be " +
			"used together -- choose one of the three"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, err
	}

	cfg.keyMap, err = parseKeys(cfg.Keys)
	if err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, err
	}

	return &cfg, nil
}
