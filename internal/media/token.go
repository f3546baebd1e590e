package media

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

// TokenVersion is the only token layout understood by Decode.
const TokenVersion = 1

// ErrBadToken is returned for any token that cannot be decoded.
var ErrBadToken = errors.New("media: bad token")

// Token identifies a format choice made on a specific prompt message.
type Token struct {
	Message int
	Format  Format
}

// Encode renders the token as "<version>.<message base36>.<format code>.<crc32 hex>".
func (t Token) Encode() string {
	body := fmt.Sprintf("%d.%s.%c", TokenVersion, strconv.FormatInt(int64(t.Message), 36), t.Format.Code())
	return fmt.Sprintf("%s.%08x", body, crc32.ChecksumIEEE([]byte(body)))
}

// Decode parses a token produced by Encode.
func Decode(raw string) (Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return Token{}, fmt.Errorf("%w: want 4 fields, got %d", ErrBadToken, len(parts))
	}
	if parts[0] != strconv.Itoa(TokenVersion) {
		return Token{}, fmt.Errorf("%w: unsupported version %q", ErrBadToken, parts[0])
	}

	body := strings.Join(parts[:3], ".")
	sum, err := strconv.ParseUint(parts[3], 16, 32)
	if err != nil || uint32(sum) != crc32.ChecksumIEEE([]byte(body)) {
		return Token{}, fmt.Errorf("%w: checksum mismatch", ErrBadToken)
	}

	msg, err := strconv.ParseInt(parts[1], 36, 32)
	if err != nil || msg <= 0 {
		return Token{}, fmt.Errorf("%w: message %q", ErrBadToken, parts[1])
	}
	if len(parts[2]) != 1 {
		return Token{}, fmt.Errorf("%w: format %q", ErrBadToken, parts[2])
	}
	f, ok := FormatFromCode(parts[2][0])
	if !ok {
		return Token{}, fmt.Errorf("%w: format %q", ErrBadToken, parts[2])
	}

	return Token{Message: int(msg), Format: f}, nil
}
