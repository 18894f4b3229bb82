package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// BufferWrapper collects machine code bytes, tracing them to stderr in verbose mode
type BufferWrapper struct {
	buf *bytes.Buffer
}

// NewBufferWrapper creates an empty code buffer
func NewBufferWrapper() *BufferWrapper {
	return &BufferWrapper{buf: &bytes.Buffer{}}
}

func (bw *BufferWrapper) Write(b byte) int {
	bw.buf.WriteByte(b)
	if VerboseMode {
		fmt.Fprintf(os.Stderr, " %x", b)
	}
	return 1
}

// Write4u writes a little-endian uint32
func (bw *BufferWrapper) Write4u(v uint32) int {
	binary.Write(bw.buf, binary.LittleEndian, v)
	if VerboseMode {
		fmt.Fprintf(os.Stderr, " %x", v)
	}
	return 4
}

// Write8u writes a little-endian uint64
func (bw *BufferWrapper) Write8u(v uint64) int {
	binary.Write(bw.buf, binary.LittleEndian, v)
	if VerboseMode {
		fmt.Fprintf(os.Stderr, " %x", v)
	}
	return 8
}

func (bw *BufferWrapper) Len() int {
	return bw.buf.Len()
}

func (bw *BufferWrapper) Bytes() []byte {
	return bw.buf.Bytes()
}
