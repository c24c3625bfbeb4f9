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

//go:build tamago && arm

// Package mmu implements an armour.Protector for TamaGo on NXP i.MX6UL SoCs,
// enforcing the armoured region through the ARM first-level translation table
// section permissions.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/tamago.
package mmu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/usbarmory/tamago/arm"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"
)

// SectionSize is the granularity of first-level translation table entries.
const SectionSize = 1 << 20

const (
	lockedFlags   = arm.TTE_AP_000<<10 | arm.TTE_EXECUTE_NEVER | arm.TTE_SECTION
	unlockedFlags = arm.MemoryRegion | arm.TTE_EXECUTE_NEVER

	// AP[2] and AP[1:0]
	apMask   = 1<<15 | 0b11<<10
	typeMask = 0b11
)

// MMU represents the armoured region translation table sections.
type MMU struct {
	// Table is the address of the first-level translation table, required
	// by Revoked.
	Table uint32

	start uint32
	end   uint32
}

// Init validates that the range is section aligned and within the 32-bit
// address space.
func (m *MMU) Init(start uintptr, size uintptr) error {
	if start%SectionSize != 0 || size%SectionSize != 0 {
		return fmt.Errorf("range %#x-%#x is not section aligned", start, start+size)
	}

	if uint64(start)+uint64(size) >= 1<<32 {
		return errors.New("range exceeds address space")
	}

	m.start = uint32(start)
	m.end = uint32(start + size)

	return nil
}

// Protect revokes (lock) or grants privileged access to the sections.
func (m *MMU) Protect(lock bool) error {
	if m.end == 0 {
		return errors.New("sections not initialized")
	}

	if lock {
		// evict dirty lines before revoking access
		imx6ul.ARM.FlushDataCache()
		imx6ul.ARM.ConfigureMMU(m.start, m.end, 0, lockedFlags)
	} else {
		imx6ul.ARM.ConfigureMMU(m.start, m.end, 0, unlockedFlags)
	}

	return nil
}

// Revoked reads the first-level translation table entries of the sections and
// reports whether all of them are section descriptors denying any access.
//
// Unlike a faulting access, which is fatal under TamaGo, this allows the
// region enforcement to be verified at runtime.
func (m *MMU) Revoked() (bool, error) {
	switch {
	case m.end == 0:
		return false, errors.New("sections not initialized")
	case m.Table == 0:
		return false, errors.New("translation table not configured")
	}

	for addr := m.start; addr < m.end; addr += SectionSize {
		entry := *(*uint32)(unsafe.Pointer(uintptr(m.Table + 4*(addr>>20))))

		if entry&typeMask != lockedFlags&typeMask || entry&apMask != lockedFlags&apMask {
			return false, nil
		}
	}

	return true, nil
}
