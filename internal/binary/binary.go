// Copyright 2026 The genomepath-htsget Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package binary provides little-endian decoding helpers shared by the
// index readers (BAI, TBI, CSI) and the CRAM container parser.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ExpectBytes reads len(want) bytes from r and reports an error unless they
// match want exactly. It is used to validate the fixed magic numbers that
// open every binary index and container format this package reads.
func ExpectBytes(r io.Reader, want []byte) error {
	got := make([]byte, len(want))
	if _, err := io.ReadFull(r, got); err != nil {
		return fmt.Errorf("reading magic: %v", err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("wrong magic %v (wanted %v)", got, want)
	}
	return nil
}

// Read reads a little-endian value from r into v.
func Read(r io.Reader, v interface{}) error {
	return binary.Read(r, binary.LittleEndian, v)
}

// Write writes v to w in little-endian form.
func Write(w io.Writer, v interface{}) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadUint8 reads a single byte as an unsigned 8-bit integer.
func ReadUint8(r io.Reader) (uint8, error) {
	var v uint8
	if err := Read(r, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadInt32 reads a little-endian signed 32-bit integer.
func ReadInt32(r io.Reader) (int32, error) {
	var v int32
	if err := Read(r, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadUint32 reads a little-endian unsigned 32-bit integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := Read(r, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadUint64 reads a little-endian unsigned 64-bit integer.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := Read(r, &v); err != nil {
		return 0, err
	}
	return v, nil
}
