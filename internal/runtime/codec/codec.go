// Package codec encodes and decodes message bodies according to their
// content type. JSON goes through sonic in std-compatible mode.
package codec

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

var defaultConfig = sonic.ConfigStd

// ErrUndecodable marks a payload that does not match its content type.
var ErrUndecodable = errors.New("skinos: message body cannot be decoded")

// aliases maps short serializer names such as "json" onto their content types.
var aliases = map[string]string{
	"json": ContentTypeJSON,
	"text": ContentTypeText,
}

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	return defaultConfig.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return defaultConfig.NewDecoder(r).Decode(v)
}

// Normalize lowercases a content type, drops its parameters and resolves
// serializer aliases. An empty content type is treated as JSON, which is what
// every publisher in this module emits by default.
func Normalize(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if ct == "" {
		return ContentTypeJSON
	}
	if alias, ok := aliases[ct]; ok {
		return alias
	}
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		return parsed
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		return strings.TrimSpace(ct[:i])
	}
	return ct
}

// Accepts reports whether contentType is part of the accept list.
func Accepts(accept []string, contentType string) bool {
	ct := Normalize(contentType)
	for _, a := range accept {
		if Normalize(a) == ct {
			return true
		}
	}
	return false
}

// DecodeBody turns a raw payload into the generic body handed to handlers:
// JSON documents become maps, slices, float64, string, bool or nil; text
// becomes a string.
func DecodeBody(contentType string, payload []byte) (any, error) {
	switch Normalize(contentType) {
	case ContentTypeJSON:
		if len(payload) == 0 {
			return nil, nil
		}
		var body any
		if err := Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
		}
		return body, nil
	case ContentTypeText:
		return string(payload), nil
	default:
		return nil, fmt.Errorf("%w: no decoder for content type %q", ErrUndecodable, contentType)
	}
}

// DecodeBodyInto decodes payload into v, which must be a non-nil pointer.
// Text bodies can only be decoded into *string or *[]byte.
func DecodeBodyInto(contentType string, payload []byte, v any) error {
	switch Normalize(contentType) {
	case ContentTypeJSON:
		if err := Unmarshal(payload, v); err != nil {
			return fmt.Errorf("%w: %w", ErrUndecodable, err)
		}
		return nil
	case ContentTypeText:
		switch target := v.(type) {
		case *string:
			*target = string(payload)
		case *[]byte:
			*target = append((*target)[:0], payload...)
		default:
			return fmt.Errorf("%w: text body into %T", ErrUndecodable, v)
		}
		return nil
	default:
		return fmt.Errorf("%w: no decoder for content type %q", ErrUndecodable, contentType)
	}
}

// EncodeBody serialises v for publishing. Strings are sent as text/plain,
// everything else as JSON.
func EncodeBody(v any) ([]byte, string, error) {
	if s, ok := v.(string); ok {
		return []byte(s), ContentTypeText, nil
	}
	payload, err := Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return payload, ContentTypeJSON, nil
}
