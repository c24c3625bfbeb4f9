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

package armour_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/transparency-dev/armored-fi/armour"
	"github.com/transparency-dev/armored-fi/internal/testonly"
)

func compareValues[T armour.Word](t *testing.T, a, b T) (armour.Result, testonly.Counter) {
	t.Helper()

	var c testonly.Counter

	onEqual, onNotEqual := c.Actions()
	res := armour.CompareEqual(armour.Return(a), armour.Return(b), onEqual, onNotEqual)

	return res, c
}

func checkEqual[T armour.Word](t *testing.T, v T) {
	t.Helper()

	res, c := compareValues(t, v, v)

	if res != armour.Success || c.Equal != 1 || c.NotEqual != 0 {
		t.Fatalf("CompareEqual(%d, %d) = %v, equal calls: %d, not equal calls: %d", v, v, res, c.Equal, c.NotEqual)
	}
}

func checkNotEqual[T armour.Word](t *testing.T, a, b T) {
	t.Helper()

	res, c := compareValues(t, a, b)

	if res != armour.Fail || c.Equal != 0 || c.NotEqual != 1 {
		t.Fatalf("CompareEqual(%d, %d) = %v, equal calls: %d, not equal calls: %d", a, b, res, c.Equal, c.NotEqual)
	}
}

func TestCompareEqualU8(t *testing.T) {
	hook := testonly.InstallHook(t)

	for v := 0; v <= math.MaxUint8; v++ {
		checkEqual(t, uint8(v))
		checkNotEqual(t, uint8(v), uint8(v+1))
	}

	if n := hook.Calls(); n != 0 {
		t.Fatalf("attack handler invoked %d times", n)
	}
}

func TestCompareEqualU16(t *testing.T) {
	hook := testonly.InstallHook(t)

	for v := 0; v <= math.MaxUint16; v += 257 {
		checkEqual(t, uint16(v))
		checkNotEqual(t, uint16(v), ^uint16(v))
	}

	checkEqual(t, uint16(math.MaxUint16))
	checkNotEqual(t, uint16(0), uint16(math.MaxUint16))

	if n := hook.Calls(); n != 0 {
		t.Fatalf("attack handler invoked %d times", n)
	}
}

func TestCompareEqualU32(t *testing.T) {
	hook := testonly.InstallHook(t)

	for _, v := range []uint32{0, 1, 0x80000000, math.MaxUint32 - 1, math.MaxUint32} {
		checkEqual(t, v)
	}

	for i := 0; i < 1000; i++ {
		a, b := rand.Uint32(), rand.Uint32()

		checkEqual(t, a)

		if a != b {
			checkNotEqual(t, a, b)
		}

		// single bit differences
		checkNotEqual(t, a, a^(1<<(i%32)))
	}

	if n := hook.Calls(); n != 0 {
		t.Fatalf("attack handler invoked %d times", n)
	}
}

func TestCompareEqualNilActions(t *testing.T) {
	testonly.InstallHook(t)

	if res := armour.CompareEqual(armour.Ret32(7), armour.Ret32(7), nil, nil); res != armour.Success {
		t.Errorf("CompareEqual(7, 7) = %v, want %v", res, armour.Success)
	}

	if res := armour.CompareEqual(armour.Ret32(7), armour.Ret32(8), nil, nil); res != armour.Fail {
		t.Errorf("CompareEqual(7, 8) = %v, want %v", res, armour.Fail)
	}
}

func TestCompareEqualTampered(t *testing.T) {
	for _, test := range []struct {
		name string
		a    armour.U32
		b    armour.U32
	}{
		{
			name: "first operand single bit",
			a:    armour.Tamper(armour.Ret32(0x1234), 1),
			b:    armour.Ret32(0x1234),
		}, {
			name: "second operand all bits",
			a:    armour.Ret32(0x1234),
			b:    armour.Tamper(armour.Ret32(0x1234), math.MaxUint32),
		}, {
			name: "both operands",
			a:    armour.Tamper(armour.Ret32(1), 3),
			b:    armour.Tamper(armour.Ret32(1), 3),
		}, {
			name: "hand built zero value",
			a:    armour.U32{},
			b:    armour.U32{},
		}, {
			name: "hand built zero value against produced zero",
			a:    armour.U32{},
			b:    armour.Ret32(0),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			hook := testonly.InstallHook(t)

			var c testonly.Counter

			onEqual, onNotEqual := c.Actions()

			if res := armour.CompareEqual(test.a, test.b, onEqual, onNotEqual); res != armour.MemErr {
				t.Errorf("CompareEqual() = %v, want %v", res, armour.MemErr)
			}

			if c.Equal != 0 || c.NotEqual != 0 {
				t.Errorf("actions invoked, equal: %d, not equal: %d", c.Equal, c.NotEqual)
			}

			if n := hook.Calls(); n != 1 {
				t.Errorf("attack handler invoked %d times, want 1", n)
			}
		})
	}
}

func TestCompareEqualTamperedU8(t *testing.T) {
	hook := testonly.InstallHook(t)

	for mask := 1; mask <= math.MaxUint8; mask++ {
		a := armour.Tamper(armour.Ret8(0x5a), uint8(mask))

		if res := armour.CompareEqual(a, armour.Ret8(0x5a), nil, nil); res != armour.MemErr {
			t.Fatalf("mask %#x: CompareEqual() = %v, want %v", mask, res, armour.MemErr)
		}
	}

	if n := hook.Calls(); n != math.MaxUint8 {
		t.Fatalf("attack handler invoked %d times, want %d", n, math.MaxUint8)
	}
}

func TestLimit(t *testing.T) {
	hook := testonly.InstallHook(t)

	for _, test := range []struct {
		in, lo, hi uint32
		want       uint32
	}{
		{in: 5, lo: 1, hi: 10, want: 5},
		{in: 0, lo: 1, hi: 10, want: 1},
		{in: 11, lo: 1, hi: 10, want: 10},
		{in: math.MaxUint32, lo: 0, hi: math.MaxUint32, want: math.MaxUint32},
		{in: 7, lo: 10, hi: 1, want: 7},
		{in: 20, lo: 10, hi: 1, want: 10},
		{in: 3, lo: 3, hi: 3, want: 3},
	} {
		if got := armour.Limit(test.in, test.lo, test.hi); got != test.want {
			t.Errorf("Limit(%d, %d, %d) = %d, want %d", test.in, test.lo, test.hi, got, test.want)
		}
	}

	if got := armour.Limit[uint8](200, 0, 100); got != 100 {
		t.Errorf("Limit(200, 0, 100) = %d, want 100", got)
	}

	if n := hook.Calls(); n != 0 {
		t.Fatalf("attack handler invoked %d times", n)
	}
}

func TestTestPanic(t *testing.T) {
	hook := testonly.InstallHook(t)

	armour.TestPanic()

	if n := hook.Calls(); n != 1 {
		t.Fatalf("attack handler invoked %d times, want 1", n)
	}
}
