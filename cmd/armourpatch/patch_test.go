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

//go:build linux

package main

import (
	"debug/elf"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/transparency-dev/armored-fi/armour"
)

const (
	// table symbol within the testdata/table image
	tableSymbol = "main.sites"
	tableWords  = 4
)

var unpopulated = []uint64{
	uint64(armour.Unpopulated),
	uint64(armour.Unpopulated),
	uint64(armour.Unpopulated),
	uint64(armour.Unpopulated),
}

// image is the testdata/table program, built once by TestMain.
var image string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "armourpatch")

	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create build directory, %v\n", err)
		os.Exit(1)
	}

	image = filepath.Join(dir, "table.elf")

	if err = buildImage(image); err != nil {
		os.RemoveAll(dir)
		fmt.Fprintf(os.Stderr, "could not build test image, %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func buildImage(out string) error {
	gotool := filepath.Join(runtime.GOROOT(), "bin", "go")

	if _, err := os.Stat(gotool); err != nil {
		gotool = "go"
	}

	cmd := exec.Command(gotool, "build", "-o", out, ".")
	cmd.Dir = filepath.Join("testdata", "table")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS=linux", "GOARCH="+runtime.GOARCH)

	if buf, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%v: %s", err, buf)
	}

	return nil
}

// copyImage returns a private copy of the test image.
func copyImage(t *testing.T) string {
	t.Helper()

	buf, err := os.ReadFile(image)

	if err != nil {
		t.Fatalf("Failed to read image: %v", err)
	}

	path := filepath.Join(t.TempDir(), "image.elf")

	if err = os.WriteFile(path, buf, 0600); err != nil {
		t.Fatalf("Failed to write image: %v", err)
	}

	return path
}

func TestPatch(t *testing.T) {
	for _, test := range []struct {
		name    string
		addrs   []uint64
		want    []uint64
		wantErr bool
	}{
		{
			name:  "end marker",
			addrs: []uint64{0x401000, 0x402000},
			want:  []uint64{0x401000, 0x402000, 0, uint64(armour.Unpopulated)},
		}, {
			name:  "full table",
			addrs: []uint64{0x401000, 0x402000, 0x403000, 0x404000},
			want:  []uint64{0x401000, 0x402000, 0x403000, 0x404000},
		}, {
			name:    "over capacity",
			addrs:   []uint64{1, 2, 3, 4, 5},
			wantErr: true,
		}, {
			name:    "zero address",
			addrs:   []uint64{0x401000, 0},
			wantErr: true,
		}, {
			name:    "empty",
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := copyImage(t)

			f, err := elf.Open(path)

			if err != nil {
				t.Fatalf("Failed to open image: %v", err)
			}

			tab, err := locate(f, tableSymbol)
			f.Close()

			if err != nil {
				t.Fatalf("locate() = %v", err)
			}

			if tab.words != tableWords {
				t.Fatalf("table has %d words, want %d", tab.words, tableWords)
			}

			img, err := os.OpenFile(path, os.O_RDWR, 0)

			if err != nil {
				t.Fatalf("Failed to open image: %v", err)
			}

			defer img.Close()

			before, err := tab.read(img)

			if err != nil {
				t.Fatalf("read() = %v", err)
			}

			if diff := cmp.Diff(before, unpopulated); diff != "" {
				t.Fatalf("Got diff before patching: %s", diff)
			}

			err = tab.write(img, test.addrs)

			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Got %v, wantErr %t", err, test.wantErr)
			}

			if test.wantErr {
				return
			}

			got, err := tab.read(img)

			if err != nil {
				t.Fatalf("read() = %v", err)
			}

			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Fatalf("Got diff: %s", diff)
			}
		})
	}
}

func TestLocateMissing(t *testing.T) {
	path := copyImage(t)

	f, err := elf.Open(path)

	if err != nil {
		t.Fatalf("Failed to open image: %v", err)
	}

	defer f.Close()

	if _, err := locate(f, "main.doesNotExist"); err == nil {
		t.Fatal("locate() succeeded for missing symbol")
	}
}

func TestParseAddrs(t *testing.T) {
	for _, test := range []struct {
		in      string
		want    []uint64
		wantErr bool
	}{
		{in: "0x80001000", want: []uint64{0x80001000}},
		{in: "0x10, 32 ,0o20", want: []uint64{0x10, 32, 16}},
		{in: "", want: nil},
		{in: "0x10,bogus", wantErr: true},
	} {
		got, err := parseAddrs(test.in)

		if gotErr := err != nil; gotErr != test.wantErr {
			t.Fatalf("parseAddrs(%q): got %v, wantErr %t", test.in, err, test.wantErr)
		}

		if diff := cmp.Diff(got, test.want); diff != "" {
			t.Errorf("parseAddrs(%q): got diff: %s", test.in, diff)
		}
	}
}
