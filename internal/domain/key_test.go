package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_EncodeDecode(t *testing.T) {
	profile := ProfileKey("user-1")
	conf := NewChildKey(profile, KindConference, "c-1")
	speaker := NewKey(KindSpeaker, "s-1")

	for _, k := range []Key{profile, conf, speaker} {
		got, err := DecodeKey(k.Encode())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	assert.True(t, conf.IsChildOf(profile))
	assert.True(t, conf.HasParent())
	assert.False(t, speaker.HasParent())
	assert.Equal(t, "Profile:user-1/Conference:c-1", conf.String())
}

func TestDecodeKey_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"not base64", "***"},
		{"wrong part count", NewKey("a", "b").Encode()[:4]},
		{"missing id", Key{Kind: KindSpeaker}.Encode()},
		{"half parent", Key{ParentKind: KindProfile, Kind: KindConference, ID: "c"}.Encode()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeKey(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidKey))
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestDecodeKeyOfKind(t *testing.T) {
	k := NewKey(KindSpeaker, "s-1")

	got, err := DecodeKeyOfKind(k.Encode(), KindSpeaker)
	require.NoError(t, err)
	assert.Equal(t, k, got)

	_, err = DecodeKeyOfKind(k.Encode(), KindConference)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
