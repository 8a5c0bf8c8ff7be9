package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParsePropertyID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParsePropertyID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE properties;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParsePropertyID(input)

		if err == nil {
			if id.IsNil() {
				t.Error("nil UUID was accepted")
			}
			roundTrip, err2 := ParsePropertyID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs ensures all ID types have consistent behavior.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errProperty := ParsePropertyID(input)
		_, errPersona := ParsePersonaID(input)

		if (errProperty == nil) != (errPersona == nil) {
			t.Errorf("inconsistent parsing for %q: property=%v persona=%v", input, errProperty, errPersona)
		}
	})
}
