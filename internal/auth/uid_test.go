package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUID_RoundTrip(t *testing.T) {
	id := "5f0c8a56-7f34-4c8e-9d0e-2a4f7b1f3c11"

	uid := EncodeUID(id)
	assert.NotContains(t, uid, "=")
	assert.NotContains(t, uid, "/")

	got, ok := DecodeUID(uid)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestDecodeUID_Invalid(t *testing.T) {
	for _, uid := range []string{"", "***", EncodeUID("not-a-uuid"), EncodeUID("42")} {
		_, ok := DecodeUID(uid)
		assert.False(t, ok, uid)
	}
}
