package z

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testFile struct {
	name    string
	content string
	extra   []byte
}

// storedZip creates an archive whose files are all stored without data descriptor.
//
// zip.Writer.CreateHeader always sets the data descriptor flag which the splicer doesn't support so CreateRaw must be
// used instead.
func storedZip(t *testing.T, comment string, files ...testFile) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	for _, f := range files {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               f.name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE([]byte(f.content)),
			CompressedSize64:   uint64(len(f.content)),
			UncompressedSize64: uint64(len(f.content)),
			Extra:              f.extra,
		})
		assert.NoErrorf(t, err, "CreateRaw(%s) error = %v", f.name, err)

		_, err = w.Write([]byte(f.content))
		assert.NoErrorf(t, err, "Write(%s) error = %v", f.name, err)
	}

	if comment != "" {
		err := zw.SetComment(comment)
		assert.NoErrorf(t, err, "SetComment(...) error = %v", err)
	}

	err := zw.Close()
	assert.NoErrorf(t, err, "Close() error = %v", err)

	return buf.Bytes()
}

// randomComment never contains a signature since it only uses alphanumeric characters.
func randomComment(n int) string {
	alphabet := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	comment := make([]byte, n)
	for i := range n {
		comment[i] = alphabet[rand.IntN(len(alphabet))]
	}

	return string(comment)
}

// cdOffsetOf reads the central directory offset straight from the last 22 bytes of an archive without comment.
func cdOffsetOf(data []byte) int {
	return int(binary.LittleEndian.Uint32(data[len(data)-6:]))
}

// paddingExtra returns an extra field of exactly n bytes (n >= 4) using an unassigned header ID.
func paddingExtra(n int) []byte {
	b := make([]byte, n)
	binary.LittleEndian.PutUint16(b[0:2], 0xcafe)
	binary.LittleEndian.PutUint16(b[2:4], uint16(n-4))
	return b
}
