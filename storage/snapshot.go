package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	lzf "github.com/zhuyie/golzf"
)

// Snapshot file layout, an RDB-style subset:
//
//	"REDIS0011" | (0xFA aux pairs)* | 0xFE db | 0xFB sizes | entries | 0xFF checksum
//
// Every entry is [0xFC expiry-millis]? value-type key value, with keys and
// values as length-encoded strings. Only string values (type 0x00) exist.

const (
	opAux      = 0xFA
	opResizeDB = 0xFB
	opExpireMS = 0xFC
	opExpireS  = 0xFD
	opSelectDB = 0xFE
	opEOF      = 0xFF

	typeString = 0x00
)

// SaveSnapshot writes the cache's live entries to path. The file is
// written to a temp file in the same directory and renamed into place.
func SaveSnapshot(path string, cache *Cache) error {
	entries := cache.liveEntries()

	f, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("temp file create failed: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.WriteString("REDIS0011"); err != nil {
		return fmt.Errorf("couldn't write header: %w", err)
	}

	if err := writeAux(w, "cached-ver", "1.0"); err != nil {
		return fmt.Errorf("couldn't write aux field: %w", err)
	}

	if err := w.WriteByte(opSelectDB); err != nil {
		return fmt.Errorf("couldn't write select-db opcode: %w", err)
	}
	if err := w.WriteByte(0); err != nil {
		return fmt.Errorf("couldn't write db number: %w", err)
	}

	if err := w.WriteByte(opResizeDB); err != nil {
		return fmt.Errorf("couldn't write resize-db opcode: %w", err)
	}
	if err := writeEncodedLength(w, uint32(len(entries))); err != nil {
		return fmt.Errorf("couldn't write hash table size: %w", err)
	}

	var withExpiry uint32
	for _, e := range entries {
		if e.expireAt != 0 {
			withExpiry++
		}
	}
	if err := writeEncodedLength(w, withExpiry); err != nil {
		return fmt.Errorf("couldn't write expire hash table size: %w", err)
	}

	for _, e := range entries {
		if err := writeEntry(w, e); err != nil {
			return fmt.Errorf("couldn't write entry %q: %w", e.key, err)
		}
	}

	if err := w.WriteByte(opEOF); err != nil {
		return fmt.Errorf("couldn't write EOF opcode: %w", err)
	}
	// checksum disabled, eight zero bytes
	if _, err := w.Write(make([]byte, 8)); err != nil {
		return fmt.Errorf("couldn't write checksum: %w", err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}

	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename into place failed: %w", err)
	}
	return nil
}

func writeEntry(w *bufio.Writer, e snapshotEntry) error {
	if e.expireAt != 0 {
		if err := w.WriteByte(opExpireMS); err != nil {
			return fmt.Errorf("couldn't write expiry opcode: %w", err)
		}
		expiry := make([]byte, 8)
		binary.LittleEndian.PutUint64(expiry, uint64(e.expireAt))
		if _, err := w.Write(expiry); err != nil {
			return fmt.Errorf("couldn't write expiry millis: %w", err)
		}
	}

	if err := w.WriteByte(typeString); err != nil {
		return fmt.Errorf("couldn't write value type: %w", err)
	}
	if err := writeEncodedString(w, e.key); err != nil {
		return fmt.Errorf("couldn't write key: %w", err)
	}
	if err := writeEncodedString(w, e.value); err != nil {
		return fmt.Errorf("couldn't write value: %w", err)
	}
	return nil
}

func writeAux(w *bufio.Writer, key, value string) error {
	if err := w.WriteByte(opAux); err != nil {
		return err
	}
	if err := writeEncodedString(w, key); err != nil {
		return err
	}
	return writeEncodedString(w, value)
}

func writeEncodedLength(w *bufio.Writer, length uint32) error {
	switch {
	case length < 1<<6:
		return w.WriteByte(byte(length))
	case length < 1<<14:
		if err := w.WriteByte(0x40 | byte(length>>8)); err != nil {
			return err
		}
		return w.WriteByte(byte(length))
	default:
		if err := w.WriteByte(0x80); err != nil {
			return err
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, length)
		_, err := w.Write(buf)
		return err
	}
}

func writeEncodedString(w *bufio.Writer, s string) error {
	if err := writeEncodedLength(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// LoadSnapshot reads the snapshot at path into the given cache,
// replacing its contents. Entries already expired are skipped.
func LoadSnapshot(path string, cache *Cache) error {
	cache.Reset()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file open failed: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	// for now, we ignore the version number.
	if err := readHeader(r); err != nil {
		return fmt.Errorf("couldn't read header: %w", err)
	}

	// now we read op code. based on the value, we decide what to do.
	for {
		opcode, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("couldn't read opcode: %w", err)
		}

		switch opcode {
		case opAux:
			if _, _, err := readAux(r); err != nil {
				return fmt.Errorf("couldn't read aux key-value pair: %w", err)
			}

		case opSelectDB:
			// the db number is unused, a single keyspace exists.
			if _, err := r.ReadByte(); err != nil {
				return fmt.Errorf("couldn't read db number: %w", err)
			}

		case opResizeDB:
			dbLength, more, err := readEncodedLength(r)
			if err != nil {
				return fmt.Errorf("couldn't read hash table size: %w", err)
			}
			if more {
				return fmt.Errorf("length is encoded in the wrong way")
			}

			if _, more, err = readEncodedLength(r); err != nil {
				return fmt.Errorf("couldn't read expire hash table size: %w", err)
			} else if more {
				return fmt.Errorf("length is encoded in the wrong way")
			}

			for i := 0; i < int(dbLength); i++ {
				if err := readEntry(r, cache); err != nil {
					return fmt.Errorf("couldn't read entry %d: %w", i, err)
				}
			}

		case opEOF:
			checksum := make([]byte, 8)
			if _, err := io.ReadFull(r, checksum); err != nil {
				return fmt.Errorf("couldn't read checksum: %w", err)
			}
			return nil

		default:
			return fmt.Errorf("unexpected opcode: 0x%02X", opcode)
		}
	}
}

func readEntry(r *bufio.Reader, cache *Cache) error {
	valueType, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("couldn't read value type: %w", err)
	}

	var expiration uint64 // default: no expiry

	switch valueType {
	case opExpireMS: // 8 byte millis follow
		millis := make([]byte, 8)
		if _, err := io.ReadFull(r, millis); err != nil {
			return fmt.Errorf("couldn't read 8 byte expiry: %w", err)
		}
		expiration = binary.LittleEndian.Uint64(millis)

		if valueType, err = r.ReadByte(); err != nil {
			return fmt.Errorf("couldn't read value type: %w", err)
		}

	case opExpireS: // 4 byte seconds follow
		secs := make([]byte, 4)
		if _, err := io.ReadFull(r, secs); err != nil {
			return fmt.Errorf("couldn't read 4 byte expiry: %w", err)
		}
		expiration = uint64(binary.LittleEndian.Uint32(secs)) * 1000

		if valueType, err = r.ReadByte(); err != nil {
			return fmt.Errorf("couldn't read value type: %w", err)
		}
	}

	if valueType != typeString {
		// we currently do not support values other than strings.
		return fmt.Errorf("unsupported value type: 0x%02X", valueType)
	}

	key, err := readEncodedString(r)
	if err != nil {
		return fmt.Errorf("couldn't read key: %w", err)
	}

	value, err := readEncodedString(r)
	if err != nil {
		return fmt.Errorf("couldn't read value: %w", err)
	}

	if expiration != 0 && uint64(time.Now().UnixMilli()) >= expiration {
		return nil
	}

	cache.SetExpireAt(key, value, int64(expiration))
	return nil
}

func readHeader(r *bufio.Reader) error {
	buf := make([]byte, 9)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	if magic := string(buf[:5]); magic != "REDIS" {
		return fmt.Errorf("the magic string is not REDIS: %s", magic)
	}
	return nil
}

func readAux(r *bufio.Reader) (string, string, error) {
	key, err := readEncodedString(r)
	if err != nil {
		return "", "", fmt.Errorf("couldn't read the key: %w", err)
	}

	value, err := readEncodedString(r)
	if err != nil {
		return "", "", fmt.Errorf("couldn't read the value: %w", err)
	}

	return key, value, nil
}

// readEncodedLength returns the encoded length. If the length byte is a
// special-format marker instead, the 6 format bits are returned with the
// second return value set to true.
func readEncodedLength(r *bufio.Reader) (uint32, bool, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, false, fmt.Errorf("couldn't read the first byte of the encoded length: %w", err)
	}

	switch (0xC0 & first) >> 6 {
	case 0: // 00 - the next 6 bits are the length
		return uint32(0x3F & first), false, nil
	case 1: // 01 - one more byte, the combined 14 bits are the length
		second, err := r.ReadByte()
		if err != nil {
			return 0, false, fmt.Errorf("couldn't read the second byte of the encoded length: %w", err)
		}
		return uint32(0x3F&first)<<8 + uint32(second), false, nil
	case 2: // 10 - the next 4 bytes are the length
		length := make([]byte, 4)
		if _, err := io.ReadFull(r, length); err != nil {
			return 0, false, fmt.Errorf("couldn't read the 4 byte length: %w", err)
		}
		return binary.BigEndian.Uint32(length), false, nil
	case 3: // 11 - the remaining 6 bits pick a string format
		return uint32(0x3F & first), true, nil
	}

	return 0, false, fmt.Errorf("case that shouldn't happen: %v", 0xC0&first)
}

func readEncodedString(r *bufio.Reader) (string, error) {
	length, more, err := readEncodedLength(r)
	if err != nil {
		return "", fmt.Errorf("couldn't read the string length: %w", err)
	}

	if !more {
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return "", fmt.Errorf("couldn't read the string body: %w", err)
		}
		return string(value), nil
	}

	switch length {
	case 0: // 8 bit integer follows
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("cannot read 8 bit integer: %w", err)
		}
		return fmt.Sprintf("%d", int8(b)), nil
	case 1: // 16 bit integer follows
		buf := make([]byte, 2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("cannot read 16 bit integer: %w", err)
		}
		return fmt.Sprintf("%d", int16(binary.LittleEndian.Uint16(buf))), nil
	case 2: // 32 bit integer follows
		buf := make([]byte, 4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("cannot read 32 bit integer: %w", err)
		}
		return fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(buf))), nil
	case 3: // LZF compressed string follows
		clen, more, err := readEncodedLength(r)
		if err != nil {
			return "", fmt.Errorf("cannot read compressed string length: %w", err)
		}
		if more {
			return "", fmt.Errorf("unexpected length encoding")
		}

		ulen, more, err := readEncodedLength(r)
		if err != nil {
			return "", fmt.Errorf("cannot read uncompressed string length: %w", err)
		}
		if more {
			return "", fmt.Errorf("unexpected length encoding")
		}

		compressed := make([]byte, clen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return "", fmt.Errorf("cannot read compressed string: %w", err)
		}

		decompressed := make([]byte, ulen)
		l, err := lzf.Decompress(compressed, decompressed)
		if err != nil {
			return "", fmt.Errorf("decompression failed: %w", err)
		}
		if uint32(l) != ulen {
			return "", fmt.Errorf("decompressed length different: %d != %d", l, ulen)
		}

		return string(decompressed), nil
	}

	return "", fmt.Errorf("unexpected string format: %d", length)
}
