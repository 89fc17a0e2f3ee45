package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/deepteams/lookahead"
)

// Dump layout, inside a single zstd stream:
//
//	magic    [4]byte "LWRS"
//	version  uint16
//	header   6 x uint32: width, lines, stride, marginX, marginY, planeSize
//	planes   4 x planeSize bytes: full, horizontal half, vertical half, diagonal half
//
// All integers are little-endian. Planes are stored with their margins.
const (
	dumpMagic   = "LWRS"
	dumpVersion = 1
)

var errBadDump = errors.New("not a lowres dump")

// dumpHeader is the fixed part of a dump.
type dumpHeader struct {
	Width, Lines, Stride uint32
	MarginX, MarginY     uint32
	PlaneSize            uint32
}

func parseLevel(s string) (zstd.EncoderLevel, error) {
	ok, lvl := zstd.EncoderLevelFromString(s)
	if !ok {
		return 0, fmt.Errorf("dump: unknown level %q (use fastest/default/better/best)", s)
	}
	return lvl, nil
}

// writeDump compresses the four primary planes of lr to w.
func writeDump(w io.Writer, lr *lookahead.Lowres, level zstd.EncoderLevel) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return err
	}
	hdr := dumpHeader{
		Width:     uint32(lr.Width),
		Lines:     uint32(lr.Lines),
		Stride:    uint32(lr.Stride),
		MarginX:   uint32(lr.MarginX),
		MarginY:   uint32(lr.MarginY),
		PlaneSize: uint32(lr.PlaneSize()),
	}
	if _, err := io.WriteString(enc, dumpMagic); err != nil {
		enc.Close()
		return err
	}
	if err := binary.Write(enc, binary.LittleEndian, uint16(dumpVersion)); err != nil {
		enc.Close()
		return err
	}
	if err := binary.Write(enc, binary.LittleEndian, hdr); err != nil {
		enc.Close()
		return err
	}
	for _, p := range [4][2]int{{0, 0}, {2, 0}, {0, 2}, {2, 2}} {
		ref := lr.PlaneRef(p[0], p[1])
		if _, err := enc.Write(lr.Buffer(ref.Buffer)); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}

// readDump decodes a dump written by writeDump.
func readDump(r io.Reader) (dumpHeader, [4][]byte, error) {
	var hdr dumpHeader
	var planes [4][]byte

	dec, err := zstd.NewReader(r)
	if err != nil {
		return hdr, planes, err
	}
	defer dec.Close()

	var magic [4]byte
	if _, err := io.ReadFull(dec, magic[:]); err != nil {
		return hdr, planes, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic[:]) != dumpMagic {
		return hdr, planes, errBadDump
	}
	var version uint16
	if err := binary.Read(dec, binary.LittleEndian, &version); err != nil {
		return hdr, planes, err
	}
	if version != dumpVersion {
		return hdr, planes, fmt.Errorf("%w: version %d", errBadDump, version)
	}
	if err := binary.Read(dec, binary.LittleEndian, &hdr); err != nil {
		return hdr, planes, err
	}
	if uint64(hdr.Width)+2*uint64(hdr.MarginX) > uint64(hdr.Stride) ||
		uint64(hdr.Stride)*(uint64(hdr.Lines)+2*uint64(hdr.MarginY)) != uint64(hdr.PlaneSize) {
		return hdr, planes, fmt.Errorf("%w: inconsistent header %+v", errBadDump, hdr)
	}
	for i := range planes {
		planes[i] = make([]byte, hdr.PlaneSize)
		if _, err := io.ReadFull(dec, planes[i]); err != nil {
			return hdr, planes, fmt.Errorf("reading plane %d: %w", i, err)
		}
	}
	return hdr, planes, nil
}
