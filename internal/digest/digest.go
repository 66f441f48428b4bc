// Package digest computes cryptographic content digests used to confirm that
// two resource files with the same checksum really hold the same bytes.
package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// Scheme selects the digest algorithm.
type Scheme byte

// Available schemes. MD5 is kept for parity with reports produced by older
// tooling; it is not the default.
const (
	SHA2_256 Scheme = iota + 1
	SHA2_512
	BLAKE2s
	BLAKE2b
	SHA3_256
	MD5
)

var names = map[Scheme]string{
	SHA2_256: "sha256",
	SHA2_512: "sha512",
	BLAKE2s:  "blake2s",
	BLAKE2b:  "blake2b",
	SHA3_256: "sha3-256",
	MD5:      "md5",
}

func (s Scheme) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("Scheme(0x%x)", byte(s))
}

// Parse returns the scheme named by s (case-insensitive).
func Parse(s string) (Scheme, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, n := range names {
		if n == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown digest scheme %q", s)
}

// Valid returns nil iff s is a known scheme.
func (s Scheme) Valid() error {
	if _, ok := names[s]; !ok {
		return fmt.Errorf("unknown digest scheme 0x%x", byte(s))
	}
	return nil
}

// Hash returns a fresh hash.Hash for the scheme.
func (s Scheme) Hash() hash.Hash {
	var h hash.Hash
	switch s {
	case SHA2_256:
		h = sha256.New()
	case SHA2_512:
		h = sha512.New()
	case BLAKE2s:
		h, _ = blake2s.New256(nil)
	case BLAKE2b:
		h, _ = blake2b.New512(nil)
	case SHA3_256:
		h = sha3.New256()
	case MD5:
		h = md5.New()
	}
	if h == nil {
		panic(s.Valid())
	}
	return h
}

// File returns the lowercase hex digest of the file at path.
func (s Scheme) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Reader(f)
}

// Reader returns the lowercase hex digest of everything read from r.
func (s Scheme) Reader(r io.Reader) (string, error) {
	h := s.Hash()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
