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
	"fmt"
	"log"
	"time"
	"unsafe"

	"github.com/usbarmory/tamago/arm"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/armory-boot/exec"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/transparency-dev/armored-fi/armour"
	"github.com/transparency-dev/armored-fi/internal/applet"
)

// integrityInterval is the minimum period of the applet runtime integrity
// check, performed on applet exceptions.
const integrityInterval = 10 * time.Second

var (
	// executable segments of the loaded applet
	appletText []applet.Segment
	lastCheck  time.Time
)

// loadApplet loads a verified TamaGo unikernel as applet, its executable
// segments are recorded for runtime verification.
func loadApplet(elf []byte) (ta *monitor.ExecCtx, err error) {
	image := &exec.ELFImage{
		Region: appletRegion,
		ELF:    elf,
	}

	imx6ul.ARM.ConfigureMMU(uint32(image.Region.Start()), uint32(image.Region.End()), 0, arm.MemoryRegion)

	if err = image.Load(); err != nil {
		return
	}

	if appletText, err = applet.Text(elf, dcpSum256); err != nil {
		return nil, fmt.Errorf("SM could not parse applet: %v", err)
	}

	if ta, err = monitor.Load(image.Entry(), image.Region, true); err != nil {
		return nil, fmt.Errorf("SM could not load applet: %v", err)
	}

	log.Printf("SM applet loaded addr:%#x entry:%#x size:%d segments:%d", ta.Memory.Start(), ta.R15, len(elf), len(appletText))

	// set stack pointer to end of available memory
	ta.R13 = uint32(ta.Memory.End())

	// override default handler
	ta.Handler = handler

	// the loaded image must match the verified one before it first runs
	checkApplet()

	return
}

// appletMemory returns the identity mapped applet memory at addr.
func appletMemory(addr uint64, size uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), size)
}

// checkApplet verifies the executable segments of the loaded applet, any
// mismatch is an attack.
func checkApplet() {
	if res := applet.Verify(appletText, dcpSum256, appletMemory, armour.Panic); res == armour.BadArg {
		armour.Panic()
	}

	lastCheck = time.Now()
}

func handler(ctx *monitor.ExecCtx) (err error) {
	if time.Since(lastCheck) >= integrityInterval {
		checkApplet()
	}

	switch ctx.ExceptionVector {
	case arm.SUPERVISOR:
		return monitor.SecureHandler(ctx)
	case arm.DATA_ABORT:
		// e.g. an access to the locked armoured region
		log.Printf("SM applet data abort pc:%#.8x", ctx.R15)
		armour.Panic()
		return errors.New("data abort")
	default:
		log.Fatalf("unhandled exception %x", ctx.ExceptionVector)
	}

	return
}

func run(ctx *monitor.ExecCtx) (err error) {
	mode := arm.ModeName(int(ctx.SPSR) & 0x1f)

	log.Printf("SM applet started mode:%s sp:%#.8x pc:%#.8x", mode, ctx.R13, ctx.R15)

	err = ctx.Run()

	log.Printf("SM applet stopped mode:%s sp:%#.8x lr:%#.8x pc:%#.8x err:%v", mode, ctx.R13, ctx.R14, ctx.R15, err)

	return
}
