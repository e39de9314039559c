package tele

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/temoto/wakepost/internal/sensor"
)

// FormatRequest builds the update line, without line terminator.
// Pure function of config and sample.
func FormatRequest(c *Config, s sensor.Sample) string {
	return fmt.Sprintf("GET /update?api_key=%s&field%d=%d&field%d=%.2f",
		url.QueryEscape(c.APIKey), c.Sensor(), s.PinInt(), c.Status(), s.Voltage)
}

func redact(request, key string) string {
	if key == "" {
		return request
	}
	return strings.Replace(request, url.QueryEscape(key), "***", 1)
}

// ParseAck reads leading decimal number of reply like C atoi:
// skip leading whitespace, optional sign, digits until first non-digit.
// Empty, non-numeric and negative replies give 0. Overflow saturates.
func ParseAck(b []byte) uint32 {
	i := 0
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	negative := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		negative = b[i] == '-'
		i++
	}
	var n uint64
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		n = n*10 + uint64(b[i]-'0')
		if n > math.MaxUint32 {
			n = math.MaxUint32
		}
	}
	if negative {
		return 0
	}
	return uint32(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
