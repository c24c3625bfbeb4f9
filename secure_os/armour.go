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

package main

import (
	"errors"
	"log"

	"github.com/transparency-dev/armored-fi/armour"
	"github.com/transparency-dev/armored-fi/hal/mmu"
)

// unlockSites lists the return addresses of the armour.Unlock calls in
// storeSecret and withSecret, written after linking with:
//
//	armourpatch -elf secure_os.elf -symbol main.unlockSites -addrs ...
var unlockSites = [4]uintptr{armour.Unpopulated, armour.Unpopulated, armour.Unpopulated, armour.Unpopulated}

func initArmour() (err error) {
	key, err := unlockKey()

	if err != nil {
		return
	}

	return armour.Init(armour.Config{
		Start:     armouredStart,
		Size:      armouredSize,
		Key:       key,
		Sites:     unlockSites[:],
		Protector: &mmu.MMU{Table: ramStart + l1TableOffset},
	})
}

// storeSecret derives the device secret into the armoured region.
//
//go:noinline
func storeSecret() (err error) {
	secret, err := deriveKey(diversifierSecret, keyLength)

	if err != nil {
		return
	}

	key, err := unlockKey()

	if err != nil {
		return
	}

	if res := armour.Unlock(key); res != armour.Success {
		return errors.New("could not unlock armoured region")
	}

	defer armour.Lock()

	copy(armoured[keyOffset:keyOffset+keyLength], secret)

	return
}

// withSecret invokes fn with the device secret, which is only valid for the
// duration of the call.
//
//go:noinline
func withSecret(fn func(secret []byte)) (err error) {
	key, err := unlockKey()

	if err != nil {
		return
	}

	if res := armour.Unlock(key); res != armour.Success {
		return errors.New("could not unlock armoured region")
	}

	defer armour.Lock()

	fn(armoured[keyOffset : keyOffset+keyLength])

	return
}

// selfTest verifies that the armoured region translation table entries deny
// access, unless the production flag is fused.
func selfTest() {
	if production() {
		return
	}

	log.Printf("SM armoured region self test")

	if err := armour.Default().SelfTest(); err != nil {
		log.Fatalf("SM armoured region self test failure, %v", err)
	}
}
