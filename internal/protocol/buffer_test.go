package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/packetd/internal/testutil/testlog"
)

func TestWriteStringEncoding(t *testing.T) {
	testlog.Start(t)
	b := &Buffer{}
	if err := b.WriteString("1.0.0"); err != nil {
		t.Fatalf("write string: %v", err)
	}
	want := []byte{0x05, '1', '.', '0', '.', '0'}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("string bytes got=%v want=%v", b.Bytes(), want)
	}

	got, err := NewBuffer(b.Bytes()).ReadString()
	if err != nil {
		t.Fatalf("read string: %v", err)
	}
	if got != "1.0.0" {
		t.Fatalf("read string got=%q", got)
	}
}

func TestBoolEncoding(t *testing.T) {
	testlog.Start(t)
	b := &Buffer{}
	b.WriteBool(true)
	b.WriteBool(false)
	if !bytes.Equal(b.Bytes(), []byte{0x01, 0x00}) {
		t.Fatalf("bool bytes got=%v", b.Bytes())
	}

	cases := []struct {
		in   byte
		want bool
	}{
		{0x00, false},
		{0x01, true},
		{0x02, false},
		{0xFF, false},
	}
	for _, tc := range cases {
		got, err := NewBuffer([]byte{tc.in}).ReadBool()
		if err != nil {
			t.Fatalf("read bool %#x: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("read bool %#x got=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestI64BigEndian(t *testing.T) {
	testlog.Start(t)
	b := &Buffer{}
	b.WriteI64(64)
	b.WriteI64(-2)
	want := []byte{
		0, 0, 0, 0, 0, 0, 0, 0x40,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
	}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("i64 bytes got=%v", b.Bytes())
	}
	r := NewBuffer(b.Bytes())
	if v, err := r.ReadI64(); err != nil || v != 64 {
		t.Fatalf("read i64 got=%d err=%v", v, err)
	}
	if v, err := r.ReadI64(); err != nil || v != -2 {
		t.Fatalf("read i64 got=%d err=%v", v, err)
	}
}

func TestReadUnderflowConsumesNothing(t *testing.T) {
	testlog.Start(t)
	b := NewBuffer([]byte{1, 2, 3})
	if _, err := b.ReadI64(); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if b.Pos() != 0 {
		t.Fatalf("cursor moved on failed read: %d", b.Pos())
	}
	if _, err := b.GetSizedVec(4); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}

	short := NewBuffer([]byte{0x05, 'a'})
	if _, err := short.ReadString(); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow for short string, got %v", err)
	}
	if short.Pos() != 0 || short.Remaining() != 2 {
		t.Fatalf("failed string read consumed bytes: pos=%d remaining=%d", short.Pos(), short.Remaining())
	}
	short.Extend([]byte("bcde"))
	if s, err := short.ReadString(); err != nil || s != "abcde" {
		t.Fatalf("completed string got=%q err=%v", s, err)
	}

	empty := &Buffer{}
	if _, err := empty.ReadU8(); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow on empty, got %v", err)
	}
}

func TestReadStringInvalidUTF8(t *testing.T) {
	testlog.Start(t)
	b := NewBuffer([]byte{0x02, 0xC3, 0x28})
	if _, err := b.ReadString(); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestWriteStringOversizeLeavesBufferUnchanged(t *testing.T) {
	testlog.Start(t)
	b := &Buffer{}
	b.WriteU8(0x07)
	if err := b.WriteString(strings.Repeat("a", 256)); !errors.Is(err, ErrOversize) {
		t.Fatalf("expected ErrOversize, got %v", err)
	}
	if !bytes.Equal(b.Bytes(), []byte{0x07}) {
		t.Fatalf("write buffer modified: %v", b.Bytes())
	}
	if err := b.WriteString(strings.Repeat("a", 255)); err != nil {
		t.Fatalf("255-byte string should fit: %v", err)
	}
}

func TestReadWriteIndependence(t *testing.T) {
	testlog.Start(t)
	b := NewBuffer([]byte{0x09, 0x0A})
	b.WriteU8(0xEE)
	v, err := b.ReadU8()
	if err != nil || v != 0x09 {
		t.Fatalf("read after write got=%#x err=%v", v, err)
	}
	b.WriteI64(1)
	if b.Remaining() != 1 {
		t.Fatalf("write changed remaining: %d", b.Remaining())
	}
	if b.OutLen() != 9 {
		t.Fatalf("read changed write buffer: %d", b.OutLen())
	}
}

func TestSizedBufferIsIndependent(t *testing.T) {
	testlog.Start(t)
	parent := NewBuffer([]byte{1, 2, 3, 4, 5})
	sub, err := parent.GetSizedBuffer(3)
	if err != nil {
		t.Fatalf("sized buffer: %v", err)
	}
	if sub.Pos() != 0 || sub.Remaining() != 3 {
		t.Fatalf("sub buffer pos=%d remaining=%d", sub.Pos(), sub.Remaining())
	}
	if parent.Remaining() != 2 {
		t.Fatalf("parent remaining=%d", parent.Remaining())
	}
	v, _ := sub.ReadU8()
	if v != 1 || parent.Pos() != 3 {
		t.Fatalf("sub read leaked into parent: v=%d parent_pos=%d", v, parent.Pos())
	}
}

func TestExtendAndCompactKeepUnread(t *testing.T) {
	testlog.Start(t)
	b := NewBuffer([]byte{1, 2})
	vec, err := b.GetSizedVec(1)
	if err != nil {
		t.Fatalf("sized vec: %v", err)
	}
	b.Extend([]byte{3, 4})
	b.Compact()
	if !bytes.Equal(b.Unread(), []byte{2, 3, 4}) {
		t.Fatalf("unread after compact got=%v", b.Unread())
	}
	if vec[0] != 1 {
		t.Fatalf("returned data invalidated: %v", vec)
	}
}

func TestWriteAllComposes(t *testing.T) {
	testlog.Start(t)
	inner := &Buffer{}
	inner.WriteBool(true)
	if err := inner.WriteString("x"); err != nil {
		t.Fatalf("write string: %v", err)
	}
	outer := &Buffer{}
	outer.WriteU8(0x10)
	outer.WriteAll(inner)
	outer.WriteAll(nil)
	if !bytes.Equal(outer.Bytes(), []byte{0x10, 0x01, 0x01, 'x'}) {
		t.Fatalf("write all got=%v", outer.Bytes())
	}
}
