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
	_ "embed"
	"log"
	"os"
	"runtime"

	usbarmory "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/transparency-dev/armored-fi/armour"
)

// initialized at compile time with -ldflags -X
var (
	Build            string
	Revision         string
	Version          string
	PublicKey        string
	ManifestKey      string
	MinAppletVersion = "0.0.0"
)

// An applet can be embedded for testing purposes with QEMU.
var (
	//go:embed assets/applet.elf
	appletELF []byte

	//go:embed assets/applet.sig
	appletSig []byte

	//go:embed assets/applet.manifest
	appletManifest []byte
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	if len(PublicKey) == 0 || len(ManifestKey) == 0 {
		log.Fatal("SM applet authentication keys are missing")
	}

	if imx6ul.Native {
		imx6ul.SetARMFreq(imx6ul.Freq792)
		imx6ul.DCP.Init()
	}

	log.Printf("%s/%s (%s) • armoured secure monitor • %s %s",
		runtime.GOOS, runtime.GOARCH, runtime.Version(),
		Revision, Build)
}

func main() {
	var err error

	usbarmory.LED("blue", false)
	usbarmory.LED("white", false)

	armour.SetPanicHandler(incident)

	if err = initArmour(); err != nil {
		log.Fatalf("SM could not initialize armoured region, %v", err)
	}

	selfTest()

	if err = storeSecret(); err != nil {
		log.Fatalf("SM could not store device secret, %v", err)
	}

	if len(appletELF) == 0 || len(appletSig) == 0 || len(appletManifest) == 0 {
		log.Printf("SM no applet, halting")
		return
	}

	log.Printf("SM applet verification")

	m, err := verifyApplet(appletELF, appletSig, appletManifest, func() {
		usbarmory.LED("white", true)
	})

	if err != nil {
		log.Fatalf("SM applet verification error, %v", err)
	}

	log.Printf("SM applet verified (%s)", m.Version)

	if err = withSecret(func(secret []byte) {
		log.Printf("SM device secret available (%d bytes)", len(secret))
	}); err != nil {
		log.Fatalf("SM device secret error, %v", err)
	}

	ta, err := loadApplet(appletELF)

	if err != nil {
		log.Fatalf("SM applet load error, %v", err)
	}

	if err = run(ta); err != nil {
		log.Printf("SM applet execution error, %v", err)
	}
}
