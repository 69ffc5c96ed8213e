// Package codec serializes group records to and from the fixed on-disk
// binary layout.
//
// The layout is little-endian throughout: an int32 version tag first, the
// scalar header, then every variable-length field preceded by an explicit
// length so decoding never scans for delimiters.
package codec

import (
	"encoding/binary"
	"math"

	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/zerr"
)

// headerSize is the fixed prefix: version, createdAt, lifetime, nameLength,
// memberCount, combinedSourceLength, artifactLength, resolveEntryCount.
const headerSize = 4 + 8 + 4 + 4 + 4 + 4 + 4 + 4

// Encode serializes a record to its on-disk byte layout.
func Encode(rec *domain.GroupRecord) []byte {
	size := headerSize + len(rec.Name) + domain.TokenLength +
		len(rec.CombinedSource) + len(rec.Artifact)
	for _, m := range rec.Members {
		size += 8 + len(m.Key) + len(m.Source)
	}
	for _, r := range rec.Resolved {
		size += 8 + len(r.Key) + len(r.Value)
	}

	w := writer{buf: make([]byte, 0, size)}
	w.i32(rec.Version)
	w.f64(rec.CreatedAt)
	w.i32(rec.LifetimeMS)
	w.i32(int32(len(rec.Name)))
	w.i32(int32(len(rec.Members)))
	w.i32(int32(len(rec.CombinedSource)))
	w.i32(int32(len(rec.Artifact)))
	w.i32(int32(len(rec.Resolved)))

	w.raw([]byte(rec.Name))
	w.raw(rec.IntegrityToken[:])

	for _, m := range rec.Members {
		w.i32(int32(len(m.Key)))
		w.i32(int32(len(m.Source)))
	}
	for _, m := range rec.Members {
		w.raw([]byte(m.Key))
		w.raw(m.Source)
	}

	w.raw(rec.CombinedSource)
	w.raw(rec.Artifact)

	for _, r := range rec.Resolved {
		w.i32(int32(len(r.Key)))
		w.i32(int32(len(r.Value)))
	}
	for _, r := range rec.Resolved {
		w.raw([]byte(r.Key))
		w.raw([]byte(r.Value))
	}

	return w.buf
}

// Decode parses an on-disk record. It fails fast with ErrVersionMismatch on
// an unknown version tag and with ErrTruncatedRecord whenever a declared
// length does not fit the bytes actually available.
func Decode(data []byte) (*domain.GroupRecord, error) {
	r := reader{data: data}

	version, err := r.i32()
	if err != nil {
		return nil, err
	}
	if version != domain.RecordVersion {
		return nil, zerr.With(zerr.With(domain.ErrVersionMismatch, "version", int(version)), "supported", int(domain.RecordVersion))
	}

	rec := &domain.GroupRecord{Version: version}
	if rec.CreatedAt, err = r.f64(); err != nil {
		return nil, err
	}
	if rec.LifetimeMS, err = r.i32(); err != nil {
		return nil, err
	}

	nameLen, err := r.length()
	if err != nil {
		return nil, err
	}
	memberCount, err := r.length()
	if err != nil {
		return nil, err
	}
	combinedLen, err := r.length()
	if err != nil {
		return nil, err
	}
	artifactLen, err := r.length()
	if err != nil {
		return nil, err
	}
	resolveCount, err := r.length()
	if err != nil {
		return nil, err
	}

	name, err := r.bytes(nameLen)
	if err != nil {
		return nil, err
	}
	rec.Name = string(name)

	token, err := r.bytes(domain.TokenLength)
	if err != nil {
		return nil, err
	}
	copy(rec.IntegrityToken[:], token)

	memberLens := make([][2]int, memberCount)
	for i := range memberLens {
		if memberLens[i][0], err = r.length(); err != nil {
			return nil, err
		}
		if memberLens[i][1], err = r.length(); err != nil {
			return nil, err
		}
	}
	rec.Members = make([]domain.MemberRecord, memberCount)
	for i, lens := range memberLens {
		key, err := r.bytes(lens[0])
		if err != nil {
			return nil, err
		}
		src, err := r.bytes(lens[1])
		if err != nil {
			return nil, err
		}
		rec.Members[i] = domain.MemberRecord{Key: string(key), Source: src}
	}

	if rec.CombinedSource, err = r.bytes(combinedLen); err != nil {
		return nil, err
	}
	if rec.Artifact, err = r.bytes(artifactLen); err != nil {
		return nil, err
	}

	resolveLens := make([][2]int, resolveCount)
	for i := range resolveLens {
		if resolveLens[i][0], err = r.length(); err != nil {
			return nil, err
		}
		if resolveLens[i][1], err = r.length(); err != nil {
			return nil, err
		}
	}
	rec.Resolved = make([]domain.ResolveRecord, resolveCount)
	for i, lens := range resolveLens {
		key, err := r.bytes(lens[0])
		if err != nil {
			return nil, err
		}
		val, err := r.bytes(lens[1])
		if err != nil {
			return nil, err
		}
		rec.Resolved[i] = domain.ResolveRecord{Key: string(key), Value: string(val)}
	}

	return rec, nil
}

type writer struct {
	buf []byte
}

func (w *writer) i32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *writer) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) i32() (int32, error) {
	if r.off+4 > len(r.data) {
		return 0, truncated(r)
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v, nil
}

func (r *reader) f64() (float64, error) {
	if r.off+8 > len(r.data) {
		return 0, truncated(r)
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.off:]))
	r.off += 8
	return v, nil
}

// length reads an int32 field length. A negative length cannot come from a
// well-formed record and is treated like a shortfall.
func (r *reader) length() (int, error) {
	v, err := r.i32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, truncated(r)
	}
	return int(v), nil
}

// bytes returns a copy so a decoded record never aliases the input buffer.
func (r *reader) bytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if r.off+n > len(r.data) {
		return nil, truncated(r)
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+n])
	r.off += n
	return out, nil
}

func truncated(r *reader) error {
	return zerr.With(zerr.With(domain.ErrTruncatedRecord, "offset", r.off), "size", len(r.data))
}
