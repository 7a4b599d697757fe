package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"valid short", "0xab", false},
		{"valid long", "0x" + strings.Repeat("a", 64), false},
		{"mixed case hex", "0xDeadBEEF", false},
		{"empty", "", true},
		{"missing prefix", "deadbeef", true},
		{"too short", "0xa", true},
		{"too long", "0x" + strings.Repeat("a", 65), true},
		{"non-hex", "0xzz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("morning show"))
	assert.NoError(t, ValidateTitle(strings.Repeat("x", 140)))
	assert.Error(t, ValidateTitle(""))
	assert.Error(t, ValidateTitle("   "))
	assert.Error(t, ValidateTitle(strings.Repeat("x", 141)))
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("music"))
	assert.NoError(t, ValidateCategory("just_chatting-24-7"))
	assert.Error(t, ValidateCategory(""))
	assert.Error(t, ValidateCategory("Music"))
	assert.Error(t, ValidateCategory("has space"))
	assert.Error(t, ValidateCategory(strings.Repeat("a", 65)))
}

func TestValidateTags(t *testing.T) {
	assert.NoError(t, ValidateTags(nil))
	assert.NoError(t, ValidateTags([]string{"live", "chill"}))
	assert.Error(t, ValidateTags([]string{""}))
	assert.Error(t, ValidateTags([]string{strings.Repeat("x", 33)}))
	assert.Error(t, ValidateTags(make([]string, 17)))
}
