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

package armour

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Region states, any other value is evidence of tampering.
const (
	stateLocked   = 0x3a5c96e1
	stateUnlocked = 0x45a3691e
)

// Protector is the platform memory protection primitive backing a Region.
type Protector interface {
	// Init configures the protection unit so that the range can be
	// enforced, it is invoked once before the region is first locked.
	Init(start uintptr, size uintptr) error
	// Protect revokes (lock) or grants all access to the range.
	Protect(lock bool) error
}

// Verifier is implemented by a Protector able to report whether access to its
// range is currently revoked without accessing it, for platforms where a
// faulting access cannot be recovered.
type Verifier interface {
	Revoked() (bool, error)
}

// Config represents a Region configuration.
type Config struct {
	// Start is the region base address.
	Start uintptr
	// Size is the region length in bytes.
	Size uintptr
	// Key is the provisioned unlock key.
	Key uint32
	// Sites lists the return addresses from which Unlock may be invoked.
	Sites ReturnTable
	// Protector enforces the region access permissions.
	Protector Protector
}

// Region represents an armoured memory range, it is locked unless Unlock
// succeeded since the last Lock.
//
// Lock never blocks: it advances the lock generation and stores the locked
// state before revoking access. Unlock grants access before storing the
// unlocked state, and only if no Lock ran since it started, so that the state
// never reads locked with access granted nor unlocked after the last Lock.
// Concurrent Unlock calls are serialized.
type Region struct {
	// serializes Unlock
	mu sync.Mutex

	start uintptr
	size  uintptr
	key   U32
	sites ReturnTable
	prot  Protector

	state atomic.Uint32
	// incremented by every lock
	gen atomic.Uint32
}

// NewRegion initializes the memory protection for the range described in
// cfg and returns it in locked state.
func NewRegion(cfg Config) (r *Region, err error) {
	switch {
	case cfg.Size == 0:
		return nil, errors.New("invalid region size")
	case cfg.Start+cfg.Size < cfg.Start:
		return nil, errors.New("region overflows address space")
	case cfg.Protector == nil:
		return nil, errors.New("missing protector")
	case len(cfg.Sites) == 0:
		return nil, errors.New("missing unlock return table")
	}

	if err = cfg.Protector.Init(cfg.Start, cfg.Size); err != nil {
		return
	}

	r = &Region{
		start: cfg.Start,
		size:  cfg.Size,
		key:   Ret32(cfg.Key),
		sites: cfg.Sites,
		prot:  cfg.Protector,
	}

	r.state.Store(stateLocked)

	if err = r.prot.Protect(true); err != nil {
		return nil, fmt.Errorf("could not lock region, %v", err)
	}

	return
}

// Start returns the region base address.
func (r *Region) Start() uintptr {
	return r.start
}

// Size returns the region length.
func (r *Region) Size() uintptr {
	return r.size
}

// Locked returns whether the region is locked. A corrupted state invokes the
// attack handler and locks the region.
func (r *Region) Locked() bool {
	switch r.state.Load() {
	case stateUnlocked:
		return false
	case stateLocked:
		return true
	}

	Panic()
	r.lock()

	return true
}

// Lock revokes all access to the region, it can be invoked from anywhere and
// in any state.
func (r *Region) Lock() {
	r.lock()
}

func (r *Region) lock() {
	r.gen.Add(1)
	r.state.Store(stateLocked)

	if err := r.prot.Protect(true); err != nil {
		Panic()
	}
}

// Unlock grants access to the region if key matches the provisioned one and
// the caller is returning to a location listed in the region return table.
//
// A key mismatch returns Fail, a call site violation (or a failure to grant
// access) invokes the attack handler and returns MemErr. A Lock running
// while access is being granted prevails and Unlock returns Fail. The region
// stays locked on all of them.
//
//go:noinline
func (r *Region) Unlock(key uint32) Result {
	// 0: runtime.Callers, 1: returnAddress, 2: Unlock, 3: its caller
	return r.unlock(key, returnAddress(3))
}

func (r *Region) unlock(key uint32, ra uintptr) (res Result) {
	var perr error
	var granted bool

	if res = r.sites.Validate(ra); res != Success {
		r.lock()
		return MemErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	gen := r.gen.Load()

	res = CompareEqual(Ret32(key), r.key, func() {
		if perr = r.prot.Protect(false); perr != nil {
			return
		}

		if r.gen.Load() != gen {
			return
		}

		switch s := r.state.Load(); s {
		case stateLocked, stateUnlocked:
			granted = r.state.CompareAndSwap(s, stateUnlocked)
		}

		// a Lock between the generation check and the swap
		if granted && r.gen.Load() != gen {
			r.state.CompareAndSwap(stateUnlocked, stateLocked)
			granted = false
		}
	}, nil)

	switch {
	case perr != nil:
		Panic()
		r.lock()
		return MemErr
	case res != Success:
		r.lock()
		return
	case !granted:
		// locked while granting access
		r.lock()
		return Fail
	case r.state.Load() != stateUnlocked:
		// locked again before returning
		return Fail
	}

	return Success
}

// SelfTest locks the region and verifies that access to it is revoked. When
// the Protector implements Verifier it is queried, otherwise reading the region
// first byte must raise a memory fault.
//
// As misconfiguring the protection unit can easily leave the region
// accessible this should be part of build testing.
func (r *Region) SelfTest() error {
	r.Lock()

	if p, ok := r.prot.(Verifier); ok {
		revoked, err := p.Revoked()

		switch {
		case err != nil:
			return fmt.Errorf("could not query region protection, %v", err)
		case !revoked:
			return errors.New("locked region is accessible")
		}

		return nil
	}

	if !faults(r.start) {
		return errors.New("locked region is accessible")
	}

	return nil
}

var secure atomic.Pointer[Region]

// Init configures the process-wide armoured region, it must be invoked once
// at startup before any Unlock call is reachable.
func Init(cfg Config) (err error) {
	r, err := NewRegion(cfg)

	if err != nil {
		return
	}

	if !secure.CompareAndSwap(nil, r) {
		return errors.New("armoured region already initialized")
	}

	return
}

// Default returns the process-wide armoured region, nil before Init.
func Default() *Region {
	return secure.Load()
}

// Lock revokes all access to the process-wide armoured region.
func Lock() {
	if r := secure.Load(); r != nil {
		r.Lock()
	}
}

// Unlock grants access to the process-wide armoured region, see
// Region.Unlock. It returns BadArg before Init.
//
//go:noinline
func Unlock(key uint32) Result {
	r := secure.Load()

	if r == nil {
		return BadArg
	}

	// 0: runtime.Callers, 1: returnAddress, 2: Unlock, 3: its caller
	return r.unlock(key, returnAddress(3))
}
