package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

// SnapshotHeader prefixes a serialized satellite snapshot.
type SnapshotHeader struct {
	Magic    uint32 // "BHSA"
	Version  uint16
	Fields   uint16 // float32 fields per satellite
	Count    uint32 // number of satellites
	Checksum uint32 // CRC32 (IEEE) of the satellite records
	Reserved uint32
}

const (
	SnapshotMagic   = 0x41534842 // "BHSA" in little endian
	SnapshotVersion = 1
	HeaderSize      = 20 // sizeof(SnapshotHeader)

	satelliteFields = 7
	recordSize      = satelliteFields * 4
)

var (
	ErrBadMagic   = errors.New("invalid snapshot magic number")
	ErrBadVersion = errors.New("unsupported snapshot version")
	ErrCorrupt    = errors.New("snapshot data corruption detected")
)

// SerializeSatellites encodes sats with a header in little-endian binary form.
// Layout per satellite: [R G B][PosX PosY][VelX VelY], all float32.
// Values are stored as raw bits so that NaNs and signed zeros survive a
// round trip exactly.
func SerializeSatellites(sats []Satellite) ([]byte, error) {
	records := make([]byte, len(sats)*recordSize)
	for i := range sats {
		putSatellite(records[i*recordSize:], &sats[i])
	}

	header := SnapshotHeader{
		Magic:    SnapshotMagic,
		Version:  SnapshotVersion,
		Fields:   satelliteFields,
		Count:    uint32(len(sats)),
		Checksum: crc32.ChecksumIEEE(records),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(records)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	buf.Write(records)
	return buf.Bytes(), nil
}

// DeserializeSatellites decodes a snapshot produced by SerializeSatellites.
func DeserializeSatellites(data []byte) ([]Satellite, error) {
	if len(data) < HeaderSize {
		return nil, errors.New("data too short for header")
	}

	var header SnapshotHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != SnapshotMagic {
		return nil, ErrBadMagic
	}
	if header.Version != SnapshotVersion || header.Fields != satelliteFields {
		return nil, ErrBadVersion
	}

	records := data[HeaderSize:]
	if want := int(header.Count) * recordSize; len(records) != want {
		return nil, fmt.Errorf("snapshot holds %d bytes of records, want %d", len(records), want)
	}
	if crc32.ChecksumIEEE(records) != header.Checksum {
		return nil, ErrCorrupt
	}

	sats := make([]Satellite, header.Count)
	for i := range sats {
		sats[i] = readSatellite(records[i*recordSize:])
	}
	return sats, nil
}

func putSatellite(b []byte, s *Satellite) {
	vals := [satelliteFields]float32{
		s.Identifier.R, s.Identifier.G, s.Identifier.B,
		s.Position.X, s.Position.Y,
		s.Velocity.X, s.Velocity.Y,
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
}

func readSatellite(b []byte) Satellite {
	var v [satelliteFields]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return Satellite{
		Identifier: Color{R: v[0], G: v[1], B: v[2]},
		Position:   Vec2{X: v[3], Y: v[4]},
		Velocity:   Vec2{X: v[5], Y: v[6]},
	}
}
