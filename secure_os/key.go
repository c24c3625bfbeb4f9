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
	"crypto/aes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/crucible/otp"
)

const (
	// armour production flag OTP bank
	productionFuseBank = 4
	// armour production flag OTP word
	productionFuseWord = 7

	diversifierUnlock = "ArmouredFIUnlock"
	diversifierSecret = "ArmouredFISecret"
	iter              = 4096
)

// deriveKey returns a device unique key for the given diversifier.
func deriveKey(diversifier string, length int) (key []byte, err error) {
	dk, err := imx6ul.DCP.DeriveKey([]byte(diversifier), make([]byte, aes.BlockSize), -1)

	if err != nil {
		return nil, fmt.Errorf("could not derive key (%v)", err)
	}

	uid := imx6ul.UniqueID()

	return pbkdf2.Key(dk, uid[:], iter, length, sha256.New), nil
}

// unlockKey returns the armoured region unlock key.
func unlockKey() (uint32, error) {
	k, err := deriveKey(diversifierUnlock, 4)

	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(k), nil
}

// production returns whether the production flag is fused, disabling self
// tests.
func production() bool {
	res, err := otp.ReadOCOTP(productionFuseBank, productionFuseWord, 0, 1)

	// fail closed on read errors
	return err != nil || len(res) != 1 || res[0] == 1
}
