package ai

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/domain"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// LooksLikePNG checks the 8-byte PNG signature.
func LooksLikePNG(b []byte) bool {
	return bytes.HasPrefix(b, pngSignature)
}

// dataURLBase64 returns the base64 part of a data:image/... URL.
func dataURLBase64(url string) (string, bool) {
	lower := asciiLower(url)
	if !strings.HasPrefix(lower, "data:image/") {
		return "", false
	}
	for _, marker := range []string{";base64,", ",base64,"} {
		if i := strings.Index(lower, marker); i >= 0 {
			return url[i+len(marker):], true
		}
	}
	return "", false
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, errors.Wrap(err, "decode base64 image")
}

// classifyImage validates decoded image bytes.
func classifyImage(data []byte) domain.Outcome {
	if len(data) == 0 {
		return domain.HardFailure(ErrNoImage)
	}
	if !LooksLikePNG(data) {
		return domain.SoftFailure([]byte("image bytes are not a valid PNG"), "error")
	}
	return domain.Success(data, "")
}
