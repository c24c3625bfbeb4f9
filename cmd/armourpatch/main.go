// Copyright 2024 The Armored FI authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// The armourpatch tool writes the valid return addresses of a guarded
// function into its armour.ReturnTable within a linked ELF image, it is the
// post-link step required by return address validation.
package main

import (
	"debug/elf"
	"flag"
	"fmt"
	"os"

	"k8s.io/klog"
)

var (
	elfFile = flag.String("elf", "", "ELF image to patch.")
	symbol  = flag.String("symbol", "", "Return table symbol (e.g. main.unlockSites).")
	addrs   = flag.String("addrs", "", "Comma separated list of return addresses.")
	list    = flag.Bool("list", false, "Print the table instead of patching it.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(*elfFile) == 0 || len(*symbol) == 0 {
		flag.PrintDefaults()
		klog.Exitf("missing -elf or -symbol")
	}

	t := tableOrDie(*elfFile, *symbol)

	if *list {
		printTable(t)
		return
	}

	a, err := parseAddrs(*addrs)

	if err != nil {
		klog.Exitf("Failed to parse addresses: %v", err)
	}

	f, err := os.OpenFile(*elfFile, os.O_RDWR, 0)

	if err != nil {
		klog.Exitf("Failed to open %q: %v", *elfFile, err)
	}

	if err = t.write(f, a); err != nil {
		f.Close()
		klog.Exitf("Failed to patch %s: %v", t.name, err)
	}

	if err = f.Close(); err != nil {
		klog.Exitf("Failed to close %q: %v", *elfFile, err)
	}

	klog.Infof("Patched %s with %d of %d entries", t.name, len(a), t.words)
}

func tableOrDie(path string, name string) *table {
	f, err := elf.Open(path)

	if err != nil {
		klog.Exitf("Failed to open ELF %q: %v", path, err)
	}

	defer f.Close()

	t, err := locate(f, name)

	if err != nil {
		klog.Exitf("Failed to locate table: %v", err)
	}

	return t
}

func printTable(t *table) {
	f, err := os.Open(*elfFile)

	if err != nil {
		klog.Exitf("Failed to open %q: %v", *elfFile, err)
	}

	defer f.Close()

	entries, err := t.read(f)

	if err != nil {
		klog.Exitf("Failed to read %s: %v", t.name, err)
	}

	for i, addr := range entries {
		fmt.Printf("%s[%d] = %#x\n", t.name, i, addr)
	}
}
