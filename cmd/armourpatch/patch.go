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

package main

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// table represents a return address table within an ELF image.
type table struct {
	name  string
	off   int64
	words int
	width int
	order binary.ByteOrder
}

// locate finds the file offset of the named data symbol.
func locate(f *elf.File, name string) (t *table, err error) {
	syms, err := f.Symbols()

	if err != nil {
		return nil, fmt.Errorf("could not read symbols, %v", err)
	}

	t = &table{
		name:  name,
		width: 8,
		order: f.ByteOrder,
	}

	if f.Class == elf.ELFCLASS32 {
		t.width = 4
	}

	for _, sym := range syms {
		if sym.Name != name {
			continue
		}

		if int(sym.Section) >= len(f.Sections) {
			return nil, fmt.Errorf("symbol %s has no section", name)
		}

		sec := f.Sections[sym.Section]

		switch {
		case sec.Type == elf.SHT_NOBITS:
			return nil, fmt.Errorf("symbol %s is in %s, declare it with a non-zero value", name, sec.Name)
		case sym.Value < sec.Addr || sym.Value+sym.Size > sec.Addr+sec.Size:
			return nil, fmt.Errorf("symbol %s is outside %s", name, sec.Name)
		case sym.Size == 0 || sym.Size%uint64(t.width) != 0:
			return nil, fmt.Errorf("symbol %s has invalid size %d", name, sym.Size)
		}

		t.off = int64(sec.Offset + sym.Value - sec.Addr)
		t.words = int(sym.Size) / t.width

		return
	}

	return nil, fmt.Errorf("symbol %s not found", name)
}

// read returns the table entries.
func (t *table) read(r io.ReaderAt) (addrs []uint64, err error) {
	buf := make([]byte, t.words*t.width)

	if _, err = r.ReadAt(buf, t.off); err != nil {
		return
	}

	for i := 0; i < t.words; i++ {
		w := buf[i*t.width:]

		if t.width == 4 {
			addrs = append(addrs, uint64(t.order.Uint32(w)))
		} else {
			addrs = append(addrs, t.order.Uint64(w))
		}
	}

	return
}

// write stores addrs in the table followed, when space remains, by a zero
// end marker.
func (t *table) write(w io.WriterAt, addrs []uint64) (err error) {
	if len(addrs) == 0 {
		return errors.New("no addresses")
	}

	if len(addrs) > t.words {
		return fmt.Errorf("%d addresses exceed table capacity (%d)", len(addrs), t.words)
	}

	n := len(addrs)

	if n < t.words {
		n++
	}

	buf := make([]byte, n*t.width)

	for i, addr := range addrs {
		if addr == 0 {
			return fmt.Errorf("address %d is zero", i)
		}

		if t.width == 4 {
			if addr > 0xffffffff {
				return fmt.Errorf("address %#x exceeds 32-bit image", addr)
			}

			t.order.PutUint32(buf[i*t.width:], uint32(addr))
		} else {
			t.order.PutUint64(buf[i*t.width:], addr)
		}
	}

	_, err = w.WriteAt(buf, t.off)

	return
}

// parseAddrs parses a comma separated list of addresses.
func parseAddrs(s string) (addrs []uint64, err error) {
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); len(f) == 0 {
			continue
		}

		addr, err := strconv.ParseUint(f, 0, 64)

		if err != nil {
			return nil, fmt.Errorf("invalid address %q, %v", f, err)
		}

		addrs = append(addrs, addr)
	}

	return
}
