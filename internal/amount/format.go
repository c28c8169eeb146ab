package amount

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatTokenAmount renders a raw base-unit amount in token units. The
// fractional part is truncated to precision digits and trailing zeros are
// dropped. Negative decimals or precision select the defaults.
func FormatTokenAmount(raw any, decimals, precision int) string {
	if precision < 0 {
		precision = DefaultPrecision
	}
	units := FromBaseUnits(raw, decimals).Truncate(int32(precision))
	return units.String()
}

// Compact renders v with a B/M/K suffix and one decimal place.
func Compact(v any) string {
	d := Parse(v)
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(billion):
		return d.Div(billion).StringFixed(1) + "B"
	case abs.GreaterThanOrEqual(million):
		return d.Div(million).StringFixed(1) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return d.Div(thousand).StringFixed(1) + "K"
	default:
		return FormatDecimal(d, 2)
	}
}

// FormatDecimal renders v in fixed notation with at most maxFrac fractional
// digits, switching to exponent notation for very large or very small
// magnitudes.
func FormatDecimal(v any, maxFrac int) string {
	if maxFrac < 0 {
		maxFrac = 2
	}
	d := Parse(v)
	abs := d.Abs()
	if abs.GreaterThanOrEqual(exponentMax) || (!abs.IsZero() && abs.LessThan(exponentMin)) {
		return formatExponent(d)
	}
	return d.Round(int32(maxFrac)).String()
}

// mantissaDigits is the number of significant digits kept in exponent form.
const mantissaDigits = 16

func formatExponent(d decimal.Decimal) string {
	coef := d.Coefficient()
	sign := ""
	if coef.Sign() < 0 {
		sign = "-"
		coef.Abs(coef)
	}
	digits := len(coef.String())
	exp := int(d.Exponent()) + digits - 1

	mantissa := decimal.NewFromBigInt(coef, -int32(digits-1)).Round(mantissaDigits - 1)
	if mantissa.GreaterThanOrEqual(ten) {
		mantissa = mantissa.Shift(-1)
		exp++
	}
	return sign + mantissa.String() + "e" + fmtExponent(exp)
}

func fmtExponent(exp int) string {
	if exp < 0 {
		return strconv.Itoa(exp)
	}
	return "+" + strconv.Itoa(exp)
}
