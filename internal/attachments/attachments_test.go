package attachments

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		size    int64
		wantErr error
	}{
		{name: "png", mime: "image/png", size: 1024},
		{name: "limit", mime: "image/jpeg", size: MaxSize},
		{name: "text", mime: "text/plain", size: 10, wantErr: ErrNotImage},
		{name: "too large", mime: "image/png", size: MaxSize + 1, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mime, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, models.IsKind(err, models.KindValidation))
		})
	}
}

func TestEncodeSniffsType(t *testing.T) {
	url, err := Encode(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngHeader), url)
	assert.NoError(t, CheckDataURL(url))

	_, err = Encode([]byte("just some text"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	url, err := FromFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	_, err = FromFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestCheckDataURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "valid", url: "data:image/gif;base64,R0lGODlh"},
		{name: "no scheme", url: "https://example.com/cat.png", wantErr: ErrMalformed},
		{name: "not base64", url: "data:image/png,raw", wantErr: ErrMalformed},
		{name: "bad payload", url: "data:image/png;base64,***", wantErr: ErrMalformed},
		{name: "not an image", url: "data:text/plain;base64,aGk=", wantErr: ErrNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDataURL(tt.url)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
