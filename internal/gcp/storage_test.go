package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGCSURI(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "gs uri passes through",
			in:   "gs://uploads/proj-1/audio.mp3",
			want: "gs://uploads/proj-1/audio.mp3",
		},
		{
			name: "storage.googleapis.com url",
			in:   "https://storage.googleapis.com/uploads/proj-1/audio.mp3",
			want: "gs://uploads/proj-1/audio.mp3",
		},
		{
			name: "storage.cloud.google.com url",
			in:   "https://storage.cloud.google.com/uploads/episode.wav",
			want: "gs://uploads/episode.wav",
		},
		{
			name: "firebase storage url with escaped path",
			in:   "https://firebasestorage.googleapis.com/v0/b/uploads/o/proj-1%2Faudio.mp3",
			want: "gs://uploads/proj-1/audio.mp3",
		},
		{
			name:    "bucket without object",
			in:      "https://storage.googleapis.com/uploads",
			wantErr: true,
		},
		{
			name:    "unrelated host",
			in:      "https://example.com/audio.mp3",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveGCSURI(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAudioMIMEType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", AudioMIMEType("gs://uploads/a.mp3"))
	assert.Equal(t, "audio/wav", AudioMIMEType("gs://uploads/a.WAV"))
	assert.Equal(t, "audio/flac", AudioMIMEType("gs://uploads/a.flac"))
	assert.Equal(t, "audio/aac", AudioMIMEType("gs://uploads/a.m4a"))
	assert.Equal(t, "audio/mpeg", AudioMIMEType("gs://uploads/mystery"))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CONTENTFLOW_TEST_VAR", "set")
	assert.Equal(t, "set", GetEnv("CONTENTFLOW_TEST_VAR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("CONTENTFLOW_TEST_VAR_MISSING", "fallback"))
}
