package bitcoin

import (
	"encoding/json"
	"testing"
)

func TestDoubleSHA256_Deterministic(t *testing.T) {
	a := DoubleSHA256([]byte("hello"))
	b := DoubleSHA256([]byte("hello"))
	if a != b {
		t.Fatal("DoubleSHA256 must be deterministic for the same input")
	}
	c := DoubleSHA256([]byte("world"))
	if a == c {
		t.Fatal("DoubleSHA256 of different inputs collided")
	}
}

func TestHash256_IsZero(t *testing.T) {
	var z Hash256
	if !z.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	h := DoubleSHA256([]byte("x"))
	if h.IsZero() {
		t.Fatal("non-zero hash reported IsZero")
	}
}

func TestHash256_String_ReversesBytes(t *testing.T) {
	var h Hash256
	h[0] = 0xab
	h[31] = 0xcd
	s := h.String()
	if s[0:2] != "cd" {
		t.Fatalf("String() = %s, want leading byte cd (reversed)", s)
	}
	if s[len(s)-2:] != "ab" {
		t.Fatalf("String() = %s, want trailing byte ab (reversed)", s)
	}
}

func TestHash256_JSONRoundTrip(t *testing.T) {
	h := DoubleSHA256([]byte("round trip me"))
	b, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Hash256
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %s, want %s", got, h)
	}
}

func TestHash256_UnmarshalJSON_EmptyString(t *testing.T) {
	var got Hash256
	got[0] = 0xff
	if err := json.Unmarshal([]byte(`""`), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.IsZero() {
		t.Fatal("empty string should decode to the zero hash")
	}
}

func TestHash256_UnmarshalJSON_WrongLength(t *testing.T) {
	var got Hash256
	if err := json.Unmarshal([]byte(`"ab"`), &got); err == nil {
		t.Fatal("expected error for a too-short hex string")
	}
}

func TestHash256_UsableAsJSONMapKey(t *testing.T) {
	h := DoubleSHA256([]byte("map key"))
	m := map[Hash256]string{h: "value"}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal map: %v", err)
	}
	var got map[Hash256]string
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	if got[h] != "value" {
		t.Fatalf("round-tripped map[h] = %q, want %q", got[h], "value")
	}
}

func TestHash256_Less(t *testing.T) {
	a := Hash256{0x01}
	b := Hash256{0x02}
	if !a.Less(b) {
		t.Fatal("Less should order by byte value")
	}
	if b.Less(a) == false && a.Less(b) == false {
		t.Fatal("exactly one of a < b or b < a must hold for distinct hashes")
	}
}
