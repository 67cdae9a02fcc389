// Package digest has the content identifier used to address every object pulled
// from a registry: manifests, image configs and layer blobs. A digest is the
// algorithm name and the hex-encoded hash joined by a colon, for example:
//
//	sha256:7173b809ca12ec5dee4506cd86be934c4596dd234ee82c0662eac04a8c2c71dc
//
// Parsing is lenient (it only requires the colon separator) so that whatever a
// registry hands back can be carried through the client. Strict validation against
// the registered algorithms is available separately through Validate.
package digest

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	godigest "github.com/opencontainers/go-digest"
)

// Canonical is the algorithm registries use by default.
const Canonical = "sha256"

// Digest is an immutable algorithm-tagged content hash. Two digests are equal when
// both the algorithm and the hash match exactly, so a Digest can be used directly
// as a map key.
type Digest struct {
	Algorithm string
	Hash      string
}

// ParseError is returned when a string cannot be parsed into a Digest.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid digest %q: %s", e.Input, e.Reason)
}

// Parse splits the passed string on the first colon into the algorithm and hash
// components. Anything after the first colon belongs to the hash.
func Parse(s string) (Digest, error) {
	alg, hash, found := strings.Cut(s, ":")
	if !found {
		return Digest{}, &ParseError{Input: s, Reason: "missing ':' separator"}
	}
	if alg == "" {
		return Digest{}, &ParseError{Input: s, Reason: "empty algorithm"}
	}
	if hash == "" {
		return Digest{}, &ParseError{Input: s, Reason: "empty hash"}
	}
	return Digest{Algorithm: alg, Hash: hash}, nil
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(s string) Digest {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromRunningHash pairs the passed algorithm with the lowercase hex rendering of
// the passed hash sum.
func FromRunningHash(algorithm string, sum []byte) Digest {
	return Digest{Algorithm: algorithm, Hash: hex.EncodeToString(sum)}
}

// FromBytes computes the canonical digest of the passed bytes.
func FromBytes(p []byte) Digest {
	return Digest{Algorithm: Canonical, Hash: godigest.Canonical.FromBytes(p).Encoded()}
}

// String renders the digest as <algorithm>:<hash>
func (d Digest) String() string {
	return d.Algorithm + ":" + d.Hash
}

// IsZero is true for the zero value, which is never produced by Parse.
func (d Digest) IsZero() bool {
	return d.Algorithm == "" && d.Hash == ""
}

// Short returns the first twelve characters of the hash. Digests clutter the
// logs so this is what gets logged.
func (d Digest) Short() string {
	if len(d.Hash) > 12 {
		return d.Hash[:12]
	}
	return d.Hash
}

// Validate checks that the algorithm is one of the registered algorithms and that
// the hash is well-formed for that algorithm.
func (d Digest) Validate() error {
	return godigest.Digest(d.String()).Validate()
}

// Hasher returns a new running hash for the algorithm of the receiver. An error
// is returned if the algorithm is not available in this binary.
func (d Digest) Hasher() (hash.Hash, error) {
	alg := godigest.Algorithm(d.Algorithm)
	if !alg.Available() {
		return nil, fmt.Errorf("unsupported digest algorithm: %q", d.Algorithm)
	}
	return alg.Hash(), nil
}

// MarshalText implements encoding.TextMarshaler so that a Digest renders as a
// plain JSON string.
func (d Digest) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text is the zero
// Digest, matching MarshalText.
func (d *Digest) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Digest{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
