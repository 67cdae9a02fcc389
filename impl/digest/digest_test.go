package digest

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDigest(t *testing.T) {
	for _, testcase := range []struct {
		input     string
		fail      bool
		algorithm string
		hash      string
	}{
		{
			input:     "sha256:e58fcf7418d4390dec8e8fb69d88c06ec07039d651fedd3aa72af9972e7d046b",
			algorithm: "sha256",
			hash:      "e58fcf7418d4390dec8e8fb69d88c06ec07039d651fedd3aa72af9972e7d046b",
		},
		{
			input:     "md5:d41d8cd98f00b204e9800998ecf8427e",
			algorithm: "md5",
			hash:      "d41d8cd98f00b204e9800998ecf8427e",
		},
		{
			// only the first colon separates
			input:     "tarsum+sha256:abc:def",
			algorithm: "tarsum+sha256",
			hash:      "abc:def",
		},
		{
			input: "d41d8cd98f00b204e9800998ecf8427e",
			fail:  true,
		},
		{
			input: "sha256:",
			fail:  true,
		},
		{
			input: ":d41d8cd98f00b204e9800998ecf8427e",
			fail:  true,
		},
		{
			input: "",
			fail:  true,
		},
	} {
		d, err := Parse(testcase.input)
		if testcase.fail {
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError for %q, got %v", testcase.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", testcase.input, err)
		}
		if d.Algorithm != testcase.algorithm || d.Hash != testcase.hash {
			t.Fatalf("wrong components for %q: %q %q", testcase.input, d.Algorithm, d.Hash)
		}
		if d.String() != testcase.input {
			t.Fatalf("round trip failed: %q != %q", d.String(), testcase.input)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	d := Digest{Algorithm: "sha512", Hash: "00ff"}
	parsed, err := Parse(d.String())
	if err != nil || parsed != d {
		t.Fatalf("parse(toString(d)) != d: %v %v", parsed, err)
	}
}

func TestEqualityIsCaseSensitive(t *testing.T) {
	if MustParse("sha256:ABCD") == MustParse("sha256:abcd") {
		t.Fail()
	}
}

func TestFromRunningHash(t *testing.T) {
	sum := sha256.Sum256([]byte("abcd"))
	d := FromRunningHash("sha256", sum[:])
	expected := "sha256:88d4266fd4e6338d13b845fcf289579d209c897823b9217da3e161936f031589"
	if d.String() != expected {
		t.Fatalf("expected %s got %s", expected, d)
	}
	if FromBytes([]byte("abcd")) != d {
		t.Fatalf("FromBytes disagrees with FromRunningHash")
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate(t *testing.T) {
	if err := MustParse("sha256:abc").Validate(); err == nil {
		t.Fatal("expected short sha256 to fail validation")
	}
	if err := MustParse("foo:abc").Validate(); err == nil {
		t.Fatal("expected unknown algorithm to fail validation")
	}
}

func TestHasher(t *testing.T) {
	h, err := MustParse("sha256:abc").Hasher()
	if err != nil {
		t.Fatal(err)
	}
	h.Write([]byte("abcd"))
	if FromRunningHash("sha256", h.Sum(nil)) != FromBytes([]byte("abcd")) {
		t.Fail()
	}
	if _, err := MustParse("foo:abc").Hasher(); err == nil {
		t.Fail()
	}
}

func TestJSON(t *testing.T) {
	var layer struct {
		Digest Digest `json:"digest"`
	}
	if err := json.Unmarshal([]byte(`{"digest":"sha256:abc"}`), &layer); err != nil {
		t.Fatal(err)
	}
	if layer.Digest != MustParse("sha256:abc") {
		t.Fatalf("unexpected digest %v", layer.Digest)
	}
	b, err := json.Marshal(layer)
	if err != nil || string(b) != `{"digest":"sha256:abc"}` {
		t.Fatalf("unexpected json %s %v", b, err)
	}
	if err := json.Unmarshal([]byte(`{"digest":"nocolon"}`), &layer); err == nil {
		t.Fatal("expected error decoding malformed digest")
	}
}

// A zero Digest survives the JSON round trip, and an empty string only ever
// decodes through JSON: Parse stays strict
func TestJSONZero(t *testing.T) {
	var layer struct {
		Digest Digest `json:"digest"`
	}
	b, err := json.Marshal(layer)
	if err != nil || string(b) != `{"digest":""}` {
		t.Fatalf("unexpected json %s %v", b, err)
	}
	layer.Digest = MustParse("sha256:abc")
	if err := json.Unmarshal(b, &layer); err != nil {
		t.Fatal(err)
	}
	if !layer.Digest.IsZero() {
		t.Fatalf("expected zero digest, got %v", layer.Digest)
	}
	if _, err := Parse(""); err == nil {
		t.Fatal("expected Parse to reject the empty string")
	}
}

func TestShort(t *testing.T) {
	d := MustParse("sha256:e58fcf7418d4390dec8e8fb69d88c06ec07039d651fedd3aa72af9972e7d046b")
	if d.Short() != "e58fcf7418d4" {
		t.Fail()
	}
	if MustParse("sha256:ab").Short() != "ab" {
		t.Fail()
	}
}
