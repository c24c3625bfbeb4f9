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

// Package testonly provides support for armour tests.
package testonly

import (
	"errors"
	"sync"
	"testing"

	"github.com/transparency-dev/armored-fi/armour"
)

// Protector is an in-memory armour.Protector recording every transition.
type Protector struct {
	sync.Mutex

	Start uintptr
	Size  uintptr

	// Transitions records the lock argument of every Protect call.
	Transitions []bool

	// FailInit and FailUnlock force the respective operations to fail.
	FailInit   bool
	FailUnlock bool

	// Leaky makes Revoked report access as granted regardless of the
	// recorded state, as a misconfigured protection unit would.
	Leaky bool

	// OnUnlock, when set, is invoked once after access is granted, before
	// Protect returns.
	OnUnlock func()
}

// Init records the protected range.
func (p *Protector) Init(start uintptr, size uintptr) error {
	if p.FailInit {
		return errors.New("init failure")
	}

	p.Start = start
	p.Size = size

	return nil
}

// Protect records a transition.
func (p *Protector) Protect(lock bool) error {
	p.Lock()

	if !lock && p.FailUnlock {
		p.Unlock()
		return errors.New("unlock failure")
	}

	p.Transitions = append(p.Transitions, lock)

	var fn func()

	if !lock {
		fn, p.OnUnlock = p.OnUnlock, nil
	}

	p.Unlock()

	if fn != nil {
		fn()
	}

	return nil
}

// Revoked returns the last recorded protection state, unless Leaky is set.
func (p *Protector) Revoked() (bool, error) {
	if p.Leaky {
		return false, nil
	}

	return p.Locked(), nil
}

// Locked returns the last recorded protection state, true before any
// transition.
func (p *Protector) Locked() bool {
	p.Lock()
	defer p.Unlock()

	if len(p.Transitions) == 0 {
		return true
	}

	return p.Transitions[len(p.Transitions)-1]
}

// Hook counts attack handler invocations.
type Hook struct {
	sync.Mutex
	n int
}

// Calls returns the number of invocations.
func (h *Hook) Calls() int {
	h.Lock()
	defer h.Unlock()

	return h.n
}

// InstallHook replaces the armour attack handler with a counting one for the
// duration of the test.
func InstallHook(t *testing.T) *Hook {
	t.Helper()

	h := &Hook{}

	prev := armour.SetPanicHandler(func() {
		h.Lock()
		h.n++
		h.Unlock()
	})

	t.Cleanup(func() {
		armour.SetPanicHandler(prev)
	})

	return h
}

// Counter counts Action invocations.
type Counter struct {
	Equal    int
	NotEqual int
}

// Actions returns the armour.Action pair incrementing c.
func (c *Counter) Actions() (onEqual armour.Action, onNotEqual armour.Action) {
	return func() { c.Equal++ }, func() { c.NotEqual++ }
}
