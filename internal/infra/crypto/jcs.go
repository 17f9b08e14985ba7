package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"genesisgraph/internal/domain"
)

// CanonicalizeJSON re-encodes a JSON document into its canonical form: keys
// sorted lexicographically at every level, no insignificant whitespace,
// ES6-style number formatting. The output is a pure function of the logical
// value, so signing and verification see identical bytes.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrEncoding, err)
	}
	if err := ensureEOF(dec); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := appendCanonical(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalizeAny canonicalizes an in-memory value. Structs and other typed
// values take a marshal round trip through encoding/json first so that field
// tags and omitempty behave exactly as they would on the wire.
func CanonicalizeAny(v any) ([]byte, error) {
	switch value := v.(type) {
	case nil, bool, string, json.Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		map[string]any, []any:
		var buf bytes.Buffer
		if err := appendCanonical(&buf, value); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case json.RawMessage:
		return CanonicalizeJSON([]byte(value))
	case []byte:
		return CanonicalizeJSON(value)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
		}
		return CanonicalizeJSON(b)
	}
}

func ensureEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON: %v", domain.ErrEncoding, err)
	}
	return fmt.Errorf("%w: invalid JSON: trailing data", domain.ErrEncoding)
}

func appendCanonical(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case string:
		appendString(buf, v)
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return fmt.Errorf("%w: invalid JSON number %q", domain.ErrEncoding, v.String())
		}
		return appendNumber(buf, f)
	case float64:
		return appendNumber(buf, v)
	case float32:
		return appendNumber(buf, float64(v))
	case int:
		return appendNumber(buf, float64(v))
	case int8:
		return appendNumber(buf, float64(v))
	case int16:
		return appendNumber(buf, float64(v))
	case int32:
		return appendNumber(buf, float64(v))
	case int64:
		return appendNumber(buf, float64(v))
	case uint:
		return appendNumber(buf, float64(v))
	case uint8:
		return appendNumber(buf, float64(v))
	case uint16:
		return appendNumber(buf, float64(v))
	case uint32:
		return appendNumber(buf, float64(v))
	case uint64:
		return appendNumber(buf, float64(v))
	case map[string]any:
		return appendObject(buf, v)
	case []any:
		return appendArray(buf, v)
	default:
		return fmt.Errorf("%w: unsupported type %T", domain.ErrEncoding, value)
	}
	return nil
}

func appendObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		appendString(buf, k)
		buf.WriteByte(':')
		if err := appendCanonical(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func appendArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendCanonical(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

const hexDigits = "0123456789abcdef"

func appendString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// appendNumber writes f the way ES6 Number#toString does, which is what JCS
// requires for interoperable canonical numbers.
func appendNumber(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: non-finite number", domain.ErrEncoding)
	}
	if f == 0 {
		buf.WriteByte('0')
		return nil
	}
	if f < 0 {
		buf.WriteByte('-')
		f = -f
	}

	// Shortest round-trip representation in scientific form, then lay the
	// digits out per the ES6 exponent thresholds.
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expStr, _ := strings.Cut(sci, "e")
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return fmt.Errorf("%w: unexpected float format %q", domain.ErrEncoding, sci)
	}
	digits := strings.Replace(mantissa, ".", "", 1)

	switch {
	case exp <= -7 || exp >= 21:
		buf.WriteByte(digits[0])
		if len(digits) > 1 {
			buf.WriteByte('.')
			buf.WriteString(digits[1:])
		}
		buf.WriteByte('e')
		if exp >= 0 {
			buf.WriteByte('+')
		}
		buf.WriteString(strconv.Itoa(exp))
	case exp+1 >= len(digits):
		buf.WriteString(digits)
		buf.WriteString(strings.Repeat("0", exp+1-len(digits)))
	case exp < 0:
		buf.WriteString("0.")
		buf.WriteString(strings.Repeat("0", -exp-1))
		buf.WriteString(digits)
	default:
		buf.WriteString(digits[:exp+1])
		buf.WriteByte('.')
		buf.WriteString(digits[exp+1:])
	}
	return nil
}
