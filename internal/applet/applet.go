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


// Package applet tracks the integrity of a loaded applet image, so that
// its executable segments can be verified while it runs.
package applet

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/transparency-dev/armored-fi/armour"
)

// Segment represents an executable segment of a loaded ELF image.
type Segment struct {
	// Addr is the segment load address.
	Addr uint64
	// Size is the segment length in bytes.
	Size uint64
	// Digest is the segment content digest as found in the image.
	Digest []byte
}

// Text returns the executable loadable segments of an ELF image, each with
// the digest of its content computed with p.
//
// The image must have been authenticated beforehand, the returned digests
// are as trustworthy as it is.
func Text(image []byte, p armour.Producer) (segs []Segment, err error) {
	f, err := elf.NewFile(bytes.NewReader(image))

	if err != nil {
		return
	}

	for _, prg := range f.Progs {
		if prg.Type != elf.PT_LOAD || prg.Flags&elf.PF_X == 0 || prg.Filesz == 0 {
			continue
		}

		buf, err := io.ReadAll(prg.Open())

		if err != nil {
			return nil, fmt.Errorf("could not read segment at %#x, %v", prg.Vaddr, err)
		}

		sum, n, err := p(buf)

		if err != nil {
			return nil, err
		}

		if n <= 0 || n > len(sum) {
			return nil, fmt.Errorf("invalid digest length %d", n)
		}

		segs = append(segs, Segment{
			Addr:   prg.Vaddr,
			Size:   prg.Filesz,
			Digest: bytes.Clone(sum[:n]),
		})
	}

	if len(segs) == 0 {
		return nil, errors.New("no executable segments")
	}

	return
}

// Verify compares the current content of each segment, as returned by mem,
// against its recorded digest. The first segment not matching stops the
// verification and its result is returned, onMismatch is only invoked on
// Fail.
func Verify(segs []Segment, p armour.Producer, mem func(addr uint64, size uint64) []byte, onMismatch armour.Action) armour.Result {
	if len(segs) == 0 || mem == nil {
		return armour.BadArg
	}

	for _, s := range segs {
		if res := armour.CompareFunc(p, mem(s.Addr, s.Size), s.Digest, nil, onMismatch); res != armour.Success {
			return res
		}
	}

	return armour.Success
}
