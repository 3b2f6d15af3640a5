package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPhone(t *testing.T) {
	h1 := HashPhone("9876543210")
	h2 := HashPhone("9876543210")
	h3 := HashPhone("9123456789")

	assert.Equal(t, h1, h2, "same input should produce same hash")
	assert.NotEqual(t, h1, h3, "different input should produce different hash")
	assert.Len(t, h1, 64, "SHA-256 hex should be 64 chars")
}

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "contact me at asha@example.com please", "contact me at [EMAIL] please"},
		{"indian mobile", "my number is 9876543210", "my number is [PHONE]"},
		{"indian mobile with code", "call +91 98765 43210 today", "call [PHONE] today"},
		{"trunk prefix", "ring 09876543210", "ring [PHONE]"},
		{"us phone", "call me at (415) 555-0134", "call me at [PHONE]"},
		{"no pii", "I have had a headache for two days", "I have had a headache for two days"},
		{"name kept", "My name is Asha Rao", "My name is Asha Rao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestScrubMetadataDropsContactFields(t *testing.T) {
	got := scrubMetadata(map[string]string{
		"appointment_id": "apt-1",
		"phone_number":   "9876543210",
		"email":          "asha@example.com",
		"note":           "reach me on 9876543210",
	})
	assert.Equal(t, map[string]string{"appointment_id": "apt-1", "note": "reach me on [PHONE]"}, got)
	assert.Nil(t, scrubMetadata(nil))
}
