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
	"crypto/subtle"
	"errors"
	"hash"
	"io"
)

// MaxDigestSize is the maximum length of a value materialized by a Producer.
const MaxDigestSize = 64

// Producer materializes the value to be verified for target (e.g. its
// digest), returning it together with its length. A non-nil error or a
// length outside [0, MaxDigestSize] is treated as an attack.
//
// The value is returned by copy so that verification never allocates.
type Producer func(target any) (sum [MaxDigestSize]byte, n int, err error)

// HashProducer returns a Producer computing the digest of a []byte or
// io.Reader target with the hash returned by h.
func HashProducer(h func() hash.Hash) Producer {
	return func(target any) (sum [MaxDigestSize]byte, n int, err error) {
		d := h()

		if d.Size() > MaxDigestSize {
			return sum, -1, errors.New("digest exceeds MaxDigestSize")
		}

		switch t := target.(type) {
		case []byte:
			d.Write(t)
		case io.Reader:
			if _, err = io.Copy(d, t); err != nil {
				return sum, -1, err
			}
		default:
			return sum, -1, errors.New("unsupported target")
		}

		n = len(d.Sum(sum[:0]))

		return
	}
}

// CompareFunc invokes p once on target and compares the produced value with
// expected, calling onEqual if they match or onNotEqual otherwise.
//
// A nil Producer or an expected value which is empty or longer than
// MaxDigestSize returns BadArg and runs no Action. A failing Producer invokes
// the attack handler and returns MemErr, a malformed value is never treated
// as a possible match. A length mismatch is Fail.
//
// All MaxDigestSize bytes are compared regardless of mismatches, CompareFunc
// itself does not allocate.
//
//go:noinline
func CompareFunc(p Producer, target any, expected []byte, onEqual, onNotEqual Action) Result {
	if p == nil || len(expected) == 0 || len(expected) > MaxDigestSize {
		return BadArg
	}

	buf, n, err := p(target)

	if err != nil || n < 0 || n > len(buf) {
		Panic()
		return MemErr
	}

	delay()

	var i int
	var x, y byte

	diff := uint32(n ^ len(expected))

	for i = 0; i < MaxDigestSize; i++ {
		x, y = 0, 0

		if i < n {
			x = buf[i]
		}

		if i < len(expected) {
			y = expected[i]
		}

		diff |= uint32(x ^ y)
	}

	if i != MaxDigestSize {
		Panic()
		return MemErr
	}

	var second uint32

	if subtle.ConstantTimeCompare(buf[:n], expected) != 1 {
		second = 1
	}

	return dispatch(diff, second, onEqual, onNotEqual)
}
