package practice

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAudio is returned for audio that is neither a base64 data URL
// nor raw base64.
var ErrInvalidAudio = errors.New("invalid audio payload")

// DecodeAudio accepts "data:audio/webm;base64,..." or bare base64 and
// returns the bytes and the MIME type ("" when not given).
func DecodeAudio(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", nil
	}

	var mime string
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: data URL without payload", ErrInvalidAudio)
		}
		params := strings.Split(header, ";")
		if params[len(params)-1] != "base64" {
			return nil, "", fmt.Errorf("%w: data URL is not base64", ErrInvalidAudio)
		}
		mime = params[0]
		if mime != "" && !strings.HasPrefix(mime, "audio/") && !strings.HasPrefix(mime, "video/") {
			return nil, "", fmt.Errorf("%w: unsupported media type %q", ErrInvalidAudio, mime)
		}
		payload = data
	}

	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// browsers occasionally send unpadded chunks
		if b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidAudio, err)
		}
	}
	if len(b) == 0 {
		return nil, "", fmt.Errorf("%w: empty audio", ErrInvalidAudio)
	}
	return b, mime, nil
}

// EncodeAudio is the inverse of DecodeAudio for queue payloads.
func EncodeAudio(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
