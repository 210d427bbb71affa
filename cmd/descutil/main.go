// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcdescriptor/descriptor"
	"github.com/btcsuite/btcdescriptor/program"
	"github.com/btcsuite/btclog"
)

var (
	log = btclog.Disabled
)

// parseDescriptor parses text with abstract keys when a key table is given
// and with concrete keys otherwise.
func parseDescriptor(text string,
	keys map[descriptor.KeyName]descriptor.PubKey) (
	*descriptor.Descriptor[descriptor.PubKey], error) {

	if len(keys) == 0 {
		return descriptor.ParseConcrete(text)
	}

	abstract, err := descriptor.ParseAbstract(text)
	if err != nil {
		return nil, err
	}
	log.Debugf("Parsed abstract descriptor %v", abstract)
	return descriptor.MapKeys(abstract, keys)
}

// report writes the properties of prog to w.
func report(w io.Writer, prog *program.Program) error {
	disasm, err := prog.Disasm()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Descriptor:         %v\n", prog.Descriptor())
	fmt.Fprintf(w, "Program:            %v\n", prog)
	fmt.Fprintf(w, "Script:             %x\n", prog.Script())
	fmt.Fprintf(w, "Disassembly:        %s\n", disasm)
	fmt.Fprintf(w, "Output script:      %s\n",
		hex.EncodeToString(prog.Serialize()))

	addr, err := prog.Address(activeNetParams)
	if err == nil {
		fmt.Fprintf(w, "Address:            %s\n", addr.EncodeAddress())
	} else {
		log.Debugf("No address: %v", err)
	}

	for i, key := range prog.RequiredKeys() {
		fmt.Fprintf(w, "Key %-3d             %v\n", i, key)
	}
	fmt.Fprintf(w, "Script length:      %d\n", prog.ScriptLen())
	fmt.Fprintf(w, "Operations:         %d\n", prog.OpCount())
	fmt.Fprintf(w, "Expected sat size:  %.1f\n",
		prog.ExpectedSatisfactionSize())
	fmt.Fprintf(w, "Max witness size:   %d\n", prog.MaxWitnessSize())

	if err := prog.CheckStandard(); err != nil {
		fmt.Fprintf(w, "Standard:           no (%v)\n", err)
	} else {
		fmt.Fprintf(w, "Standard:           yes\n")
	}
	return nil
}

// realMain is the real main function for the utility.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain() error {
	// Load configuration and parse command line.
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	// Setup logging.
	backendLogger := btclog.NewBackend(os.Stderr)
	defer os.Stderr.Sync()
	log = backendLogger.Logger("MAIN")
	descLog := backendLogger.Logger("DESC")
	progLog := backendLogger.Logger("PROG")
	descriptor.UseLogger(descLog)
	program.UseLogger(progLog)

	level, ok := btclog.LevelFromString(cfg.DebugLevel)
	if !ok {
		err := fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log.SetLevel(level)
	descLog.SetLevel(level)
	progLog.SetLevel(level)

	desc, err := parseDescriptor(cfg.Args.Descriptor, cfg.keyMap)
	if err != nil {
		log.Errorf("Failed to parse descriptor: %v", err)
		return err
	}

	prog, err := program.Compile(desc)
	if err != nil {
		log.Errorf("Failed to compile %v: %v", desc, err)
		return err
	}

	return report(os.Stdout, prog)
}

func main() {
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
