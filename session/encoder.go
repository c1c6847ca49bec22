package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// CurrentSchemaVersion is the leading byte written by Encode.
	CurrentSchemaVersion = 1

	flagRememberMe = 1 << 0
)

var errFieldTooLong = errors.New("session field exceeds 255 bytes")

// Encode serializes r. Layout (v1):
//
//	version u8 | id str8 | user str8 | provider str8 | flags u8 |
//	access [32] | refresh [32] | created i64 | expires i64 | refreshExpires i64
//
// Times are unix milliseconds, big-endian.
func Encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(3 + len(r.ID) + len(r.UserID) + len(r.Provider) + 1 + 64 + 24 + 1)

	buf.WriteByte(CurrentSchemaVersion)
	for _, s := range []string{r.ID, r.UserID, r.Provider} {
		if len(s) > 255 {
			return nil, errFieldTooLong
		}
		buf.WriteByte(byte(len(s)))
		buf.WriteString(s)
	}

	var flags byte
	if r.RememberMe {
		flags |= flagRememberMe
	}
	buf.WriteByte(flags)

	buf.Write(r.AccessHash[:])
	buf.Write(r.RefreshHash[:])

	var ts [24]byte
	binary.BigEndian.PutUint64(ts[0:], uint64(r.CreatedAt.UnixMilli()))
	binary.BigEndian.PutUint64(ts[8:], uint64(r.ExpiresAt.UnixMilli()))
	binary.BigEndian.PutUint64(ts[16:], uint64(r.RefreshExpiresAt.UnixMilli()))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses a blob written by Encode.
func Decode(data []byte) (Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if version != CurrentSchemaVersion {
		return Record{}, fmt.Errorf("unsupported session schema version %d", version)
	}

	var r Record
	for _, dst := range []*string{&r.ID, &r.UserID, &r.Provider} {
		if *dst, err = readString8(reader); err != nil {
			return Record{}, err
		}
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if flags&^flagRememberMe != 0 {
		return Record{}, fmt.Errorf("unknown session flags %#x", flags)
	}
	r.RememberMe = flags&flagRememberMe != 0

	if _, err := io.ReadFull(reader, r.AccessHash[:]); err != nil {
		return Record{}, err
	}
	if _, err := io.ReadFull(reader, r.RefreshHash[:]); err != nil {
		return Record{}, err
	}

	var ts [24]byte
	if _, err := io.ReadFull(reader, ts[:]); err != nil {
		return Record{}, err
	}
	r.CreatedAt = time.UnixMilli(int64(binary.BigEndian.Uint64(ts[0:])))
	r.ExpiresAt = time.UnixMilli(int64(binary.BigEndian.Uint64(ts[8:])))
	r.RefreshExpiresAt = time.UnixMilli(int64(binary.BigEndian.Uint64(ts[16:])))

	if reader.Len() != 0 {
		return Record{}, errors.New("trailing bytes after session record")
	}
	return r, nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
