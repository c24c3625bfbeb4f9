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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
	"golang.org/x/mod/sumdb/note"

	"github.com/usbarmory/armory-boot/config"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/transparency-dev/armored-fi/armour"
)

const manifestOrigin = "Armored FI applet"

// manifest represents the signed statement on an applet release.
type manifest struct {
	Version semver.Version
	Digest  []byte
}

// parseManifest verifies the manifest note signature and parses its body:
//
//	<origin>
//	<semantic version>
//	<hex encoded SHA-256 applet digest>
func parseManifest(buf []byte, key string) (m *manifest, err error) {
	v, err := note.NewVerifier(key)

	if err != nil {
		return
	}

	n, err := note.Open(buf, note.VerifierList(v))

	if err != nil {
		return
	}

	lines := strings.Split(strings.TrimSuffix(n.Text, "\n"), "\n")

	if len(lines) != 3 || lines[0] != manifestOrigin {
		return nil, errors.New("invalid manifest")
	}

	ver, err := semver.NewVersion(lines[1])

	if err != nil {
		return
	}

	digest, err := hex.DecodeString(lines[2])

	if err != nil {
		return
	}

	return &manifest{
		Version: *ver,
		Digest:  digest,
	}, nil
}

// dcpSum256 produces the SHA-256 digest of a []byte target with the DCP
// hardware engine.
func dcpSum256(target any) (sum [armour.MaxDigestSize]byte, n int, err error) {
	b, ok := target.([]byte)

	if !ok {
		return sum, -1, errors.New("invalid target")
	}

	d, err := imx6ul.DCP.Sum256(b)

	if err != nil {
		return sum, -1, err
	}

	n = copy(sum[:], d[:])

	return
}

// verifyApplet authenticates the applet image against its detached signature
// and signed manifest, the image digest is compared in a fault-resistant
// manner and onValid is only invoked on a match.
func verifyApplet(elf []byte, sig []byte, buf []byte, onValid armour.Action) (m *manifest, err error) {
	if err = config.Verify(elf, sig, PublicKey); err != nil {
		return
	}

	if m, err = parseManifest(buf, ManifestKey); err != nil {
		return nil, fmt.Errorf("manifest verification error, %v", err)
	}

	minVersion, err := semver.NewVersion(MinAppletVersion)

	if err != nil {
		return nil, fmt.Errorf("invalid minimum version, %v", err)
	}

	if m.Version.LessThan(*minVersion) {
		return nil, fmt.Errorf("applet version %s older than %s", m.Version, minVersion)
	}

	switch res := armour.CompareFunc(dcpSum256, elf, m.Digest, onValid, nil); res {
	case armour.Success:
		return
	case armour.Fail:
		return nil, errors.New("applet digest mismatch")
	default:
		return nil, fmt.Errorf("applet digest verification error (%v)", res)
	}
}
