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

//go:build unix

// Package pages implements an armour.Protector for hosted builds, backing the
// armoured region with anonymous memory pages whose access is toggled with
// mprotect(2).
package pages

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Guard represents a page aligned anonymous mapping.
type Guard struct {
	mem []byte
}

// New maps enough pages to hold size bytes, the mapping is accessible until
// the first Protect call.
func New(size int) (g *Guard, err error) {
	if size <= 0 {
		return nil, errors.New("invalid size")
	}

	pageSize := unix.Getpagesize()
	rounded := (size + pageSize - 1) &^ (pageSize - 1)

	mem, err := unix.Mmap(-1, 0, rounded, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)

	if err != nil {
		return nil, fmt.Errorf("could not map pages, %v", err)
	}

	return &Guard{mem: mem}, nil
}

// Start returns the mapping base address.
func (g *Guard) Start() uintptr {
	return uintptr(unsafe.Pointer(&g.mem[0]))
}

// Size returns the mapping length.
func (g *Guard) Size() uintptr {
	return uintptr(len(g.mem))
}

// Bytes returns the mapped memory, it must only be accessed while unlocked.
func (g *Guard) Bytes() []byte {
	return g.mem
}

// Init verifies that the range matches the mapping.
func (g *Guard) Init(start uintptr, size uintptr) error {
	if g.mem == nil {
		return errors.New("mapping released")
	}

	if start != g.Start() || size != g.Size() {
		return fmt.Errorf("range %#x-%#x does not match mapping %#x-%#x", start, start+size, g.Start(), g.Start()+g.Size())
	}

	return nil
}

// Protect revokes (lock) or grants read/write access to the mapping.
func (g *Guard) Protect(lock bool) error {
	if g.mem == nil {
		return errors.New("mapping released")
	}

	prot := unix.PROT_READ | unix.PROT_WRITE

	if lock {
		prot = unix.PROT_NONE
	}

	return unix.Mprotect(g.mem, prot)
}

// Close unmaps the pages.
func (g *Guard) Close() (err error) {
	if g.mem != nil {
		err = unix.Munmap(g.mem)
		g.mem = nil
	}

	return
}
