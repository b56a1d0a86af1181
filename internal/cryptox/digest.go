// Package cryptox holds the content digest helpers used to detect receipt
// corruption between upload and download.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

// ErrDigestMismatch is returned by a verifying reader whose stream does not
// match the expected size or SHA-256.
var ErrDigestMismatch = errors.New("content digest mismatch")

func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type verifyingReader struct {
	rc   io.ReadCloser
	h    hash.Hash
	n    int64
	size int64
	want string
}

// NewVerifyingReader wraps rc so that reaching EOF checks the byte count
// against size and the SHA-256 against wantHex. An empty wantHex skips the
// digest comparison. On mismatch Read returns ErrDigestMismatch instead of
// io.EOF.
func NewVerifyingReader(rc io.ReadCloser, size int64, wantHex string) io.ReadCloser {
	return &verifyingReader{rc: rc, h: sha256.New(), size: size, want: wantHex}
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.rc.Read(p)
	if n > 0 {
		v.h.Write(p[:n])
		v.n += int64(n)
		if v.n > v.size {
			return n, fmt.Errorf("%w: more than %d bytes", ErrDigestMismatch, v.size)
		}
	}
	if errors.Is(err, io.EOF) {
		if v.n != v.size {
			return n, fmt.Errorf("%w: got %d bytes, want %d", ErrDigestMismatch, v.n, v.size)
		}
		if v.want != "" && hex.EncodeToString(v.h.Sum(nil)) != v.want {
			return n, fmt.Errorf("%w: sha256", ErrDigestMismatch)
		}
	}
	return n, err
}

func (v *verifyingReader) Close() error {
	return v.rc.Close()
}
