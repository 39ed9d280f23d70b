// Package action encodes button presses as compact callback tokens and
// decodes them back into operations on stored files.
//
// A token is "<tag>" for payload-free operations or "<tag>:<name>" for
// conversions, where name is the generated base name of the source file.
// Directory layout never crosses the wire; Decode re-roots the name on the
// storage area. Generated names are hex digits plus a dotted extension, so
// the separator cannot occur inside a legitimate payload.
package action

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

// Operation names one action a callback button can request.
type Operation string

const (
	ToPNG   Operation = consts.OpPNG
	ToWEBP  Operation = consts.OpWEBP
	ToPDF   Operation = consts.OpPDF
	ToJPG   Operation = consts.OpJPG
	ToMP3   Operation = consts.OpMP3
	Recheck Operation = consts.OpRecheck
)

// ErrMalformedToken flags callback data this bot could not have produced,
// whether truncated, forged or hand-crafted.
var ErrMalformedToken = errors.New("malformed action token")

const separator = ":"

// IsConversion reports whether op transforms a stored file and therefore
// carries a file payload in its token.
func IsConversion(op Operation) bool {
	switch op {
	case ToPNG, ToWEBP, ToPDF, ToJPG, ToMP3:
		return true
	}
	return false
}

// Conversions lists every file-transforming operation.
func Conversions() []Operation {
	return []Operation{ToPNG, ToWEBP, ToPDF, ToJPG, ToMP3}
}

// Codec translates between operations on stored files and callback tokens.
type Codec struct {
	area *storage.Area
}

func NewCodec(area *storage.Area) *Codec {
	return &Codec{area: area}
}

// Encode builds the token requesting op on the stored file at path. Only
// conversion operations take a file; the path must live directly inside the
// storage area and the token must fit the Bot API callback data limit.
func (c *Codec) Encode(op Operation, path string) (string, error) {
	if !IsConversion(op) {
		return "", fmt.Errorf("%w: operation %q takes no file", ErrMalformedToken, op)
	}
	if !c.area.Contains(path) {
		return "", fmt.Errorf("%w: %q is outside the storage area", ErrMalformedToken, path)
	}
	name := filepath.Base(path)
	if strings.Contains(name, separator) {
		return "", fmt.Errorf("%w: name %q contains the token separator", ErrMalformedToken, name)
	}
	token := string(op) + separator + name
	if len(token) > consts.MaxCallbackDataLength {
		return "", fmt.Errorf("%w: token is %d bytes, limit %d", ErrMalformedToken, len(token), consts.MaxCallbackDataLength)
	}
	return token, nil
}

// RecheckToken returns the payload-free membership recheck token.
func RecheckToken() string {
	return string(Recheck)
}

// Decode parses callback data into an operation and, for conversions, the
// absolute path of the referenced source file. It validates shape only;
// whether the file still exists is the pipeline's concern.
func (c *Codec) Decode(data string) (Operation, string, error) {
	if data == "" {
		return "", "", fmt.Errorf("%w: empty callback data", ErrMalformedToken)
	}
	if len(data) > consts.MaxCallbackDataLength {
		return "", "", fmt.Errorf("%w: callback data is %d bytes, limit %d", ErrMalformedToken, len(data), consts.MaxCallbackDataLength)
	}

	tag, payload, found := strings.Cut(data, separator)
	op := Operation(tag)

	if !found {
		if op == Recheck {
			return Recheck, "", nil
		}
		if IsConversion(op) {
			return "", "", fmt.Errorf("%w: operation %q is missing its file payload", ErrMalformedToken, op)
		}
		return "", "", fmt.Errorf("%w: unknown tag %q", ErrMalformedToken, tag)
	}

	if !IsConversion(op) {
		return "", "", fmt.Errorf("%w: tag %q takes no payload", ErrMalformedToken, tag)
	}
	if payload == "" {
		return "", "", fmt.Errorf("%w: operation %q has an empty file payload", ErrMalformedToken, op)
	}
	if strings.Contains(payload, separator) {
		return "", "", fmt.Errorf("%w: payload %q contains the token separator", ErrMalformedToken, payload)
	}

	path, err := c.area.Join(payload)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return op, path, nil
}
