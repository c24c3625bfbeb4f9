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
	"log"

	usbarmory "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/transparency-dev/armored-fi/armour"
)

// incident is the armour attack handler: it revokes access to armoured
// memory, signals the event and resets the SoC. It never returns.
func incident() {
	armour.Lock()

	usbarmory.LED("white", false)
	usbarmory.LED("blue", true)

	log.Printf("SM fault injection detected, resetting")

	imx6ul.Reset()

	for {
	}
}
