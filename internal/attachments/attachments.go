package attachments

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/agentx/chatwidget/internal/models"
)

// MaxSize is the largest image accepted as an attachment.
const MaxSize = 10 << 20

var (
	ErrNotImage  = errors.New("only image files are supported")
	ErrTooLarge  = errors.New("image must be 10MB or smaller")
	ErrMalformed = errors.New("attachment is not a base64 image data URL")
)

// Validate checks an upload's declared type and size.
func Validate(mimeType string, size int64) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return models.ValidationError("validate attachment", ErrNotImage)
	}
	if size > MaxSize {
		return models.ValidationError("validate attachment", ErrTooLarge)
	}
	return nil
}

// Encode returns data as an inline data URL after validating it. The type
// is sniffed from the content.
func Encode(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if err := Validate(mimeType, int64(len(data))); err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

// FromFile reads an image file and returns it as a data URL.
func FromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxSize {
		return "", models.ValidationError("validate attachment", ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Encode(data)
}

// CheckDataURL validates an attachment that already arrives as a data URL.
func CheckDataURL(url string) error {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return models.ValidationError("validate attachment", ErrMalformed)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return models.ValidationError("validate attachment", ErrMalformed)
	}

	mimeType := strings.TrimSuffix(header, ";base64")
	if !strings.HasPrefix(mimeType, "image/") {
		return models.ValidationError("validate attachment", ErrNotImage)
	}
	if strings.ContainsAny(payload, " \t\r\n") {
		return models.ValidationError("validate attachment", ErrMalformed)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.ValidationError("validate attachment", ErrMalformed)
	}
	if len(data) > MaxSize {
		return models.ValidationError("validate attachment", ErrTooLarge)
	}
	return nil
}
