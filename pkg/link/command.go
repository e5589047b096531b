package link

import (
	"math"
	"strconv"
	"strings"

	"github.com/robotalks/relayrx/pkg/relay"
)

// CommandPrefix starts a mask command.
const CommandPrefix = "K:"

// ParseCommand recognizes "K:<hex>". Leading spaces and tabs are
// skipped. The hex part is read up to the first non-hex character and
// anything unparsable reads as 0, which switches everything off.
// ok is false when the line is not a command at all.
func ParseCommand(line []byte) (mask relay.Mask, ok bool) {
	for len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		line = line[1:]
	}
	if len(line) < len(CommandPrefix) || string(line[:len(CommandPrefix)]) != CommandPrefix {
		return 0, false
	}
	return relay.Mask(uint32(parseHex32(line[len(CommandPrefix):]))) & relay.MaskBits, true
}

// parseHex32 converts like strtol(s, NULL, 16) with a 32-bit long:
// leading whitespace, optional sign and 0x prefix, saturating on overflow.
func parseHex32(s []byte) int32 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') && hexDigit(s[i+2]) >= 0 {
		i += 2
	}
	var mag uint64
	for ; i < len(s); i++ {
		d := hexDigit(s[i])
		if d < 0 {
			break
		}
		if mag <= math.MaxUint32 {
			mag = mag<<4 | uint64(d)
		}
	}
	if neg {
		if mag > -math.MinInt32 {
			return math.MinInt32
		}
		return int32(-int64(mag))
	}
	if mag > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(mag)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func hexDigit(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}

// FormatCommand renders the command line for a mask, terminator included.
func FormatCommand(mask relay.Mask) []byte {
	hex := strings.ToUpper(strconv.FormatUint(uint64(mask&relay.MaskBits), 16))
	return []byte(CommandPrefix + hex + "\n")
}
