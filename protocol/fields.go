package protocol

import (
	"errors"
	"math"
	"strconv"
)

var (
	// ErrMissingField is returned when a frame has fewer fields than its
	// message kind requires
	ErrMissingField = errors.New("missing field")

	// ErrInvalidNumber is returned when a field does not hold a number
	ErrInvalidNumber = errors.New("invalid number")
)

// SplitFields splits a frame interior on FieldSeparator. There is no
// quoting or escaping. An empty frame yields no fields.
func SplitFields(frame []byte) [][]byte {
	if len(frame) == 0 {
		return nil
	}
	n := 1
	for _, b := range frame {
		if b == FieldSeparator {
			n++
		}
	}
	fields := make([][]byte, 0, n)
	start := 0
	for i, b := range frame {
		if b == FieldSeparator {
			fields = append(fields, frame[start:i])
			start = i + 1
		}
	}
	return append(fields, frame[start:])
}

// DecodeField pops the next field
func DecodeField(fields *[][]byte) ([]byte, error) {
	if len(*fields) == 0 {
		return nil, ErrMissingField
	}
	f := (*fields)[0]
	*fields = (*fields)[1:]
	return f, nil
}

// DecodeFloat pops the next field and parses it as a decimal number
func DecodeFloat(fields *[][]byte) (float32, error) {
	f, err := DecodeField(fields)
	if err != nil {
		return 0, err
	}
	v, err := parseNumber(f)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// DecodeInt pops the next field and parses it as an integer. Decimal text
// such as "15.0" is accepted and truncated toward zero; anything that is
// not a plain decimal number is ErrInvalidNumber.
func DecodeInt(fields *[][]byte) (int32, error) {
	f, err := DecodeField(fields)
	if err != nil {
		return 0, err
	}
	v, err := parseNumber(f)
	if err != nil {
		return 0, err
	}
	v = math.Trunc(v)
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, ErrInvalidNumber
	}
	return int32(v), nil
}

func parseNumber(f []byte) (float64, error) {
	s := trimSpace(f)
	if len(s) == 0 {
		return 0, ErrInvalidNumber
	}
	if !isDecimal(s) {
		return 0, ErrInvalidNumber
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidNumber
	}
	return v, nil
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\r') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// EncodeFrame writes fields as a single delimited frame
func EncodeFrame(output OutputBuffer, fields ...string) {
	output.Output([]byte{StartMarker})
	for i, f := range fields {
		if i > 0 {
			output.Output([]byte{FieldSeparator})
		}
		output.Output([]byte(f))
	}
	output.Output([]byte{EndMarker})
}

// AppendFrame is EncodeFrame for callers that build frames in a byte slice
func AppendFrame(dst []byte, fields ...string) []byte {
	dst = append(dst, StartMarker)
	for i, f := range fields {
		if i > 0 {
			dst = append(dst, FieldSeparator)
		}
		dst = append(dst, f...)
	}
	return append(dst, EndMarker)
}

// AppendCelsius formats a temperature with two decimals
func AppendCelsius(dst []byte, c float32) []byte {
	return strconv.AppendFloat(dst, float64(c), 'f', 2, 32)
}

// AppendTelemetry appends one "T_<name>[_SET],<celsius>\n" line
func AppendTelemetry(dst []byte, zone string, setpoint bool, c float32) []byte {
	dst = append(dst, TelemetryPrefix...)
	dst = append(dst, zone...)
	if setpoint {
		dst = append(dst, TelemetrySetSuffix...)
	}
	dst = append(dst, FieldSeparator)
	dst = AppendCelsius(dst, c)
	return append(dst, LineTerminator)
}

// isDecimal accepts [+-]digits[.digits] with at least one digit. Exponents,
// hex floats and words such as "inf" are refused.
func isDecimal(s []byte) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits, dot := 0, false
	for ; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}
