package rounding

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Method is a tenant-configured rounding rule for monetary amounts.
type Method string

const (
	HalfUp   Method = "HALF_UP"
	HalfDown Method = "HALF_DOWN"
	Ceil     Method = "CEIL"
	Floor    Method = "FLOOR"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
	cent = decimal.New(1, -2)
)

// Policy rounds amounts to a multiple of Unit using Method.
type Policy struct {
	Method Method
	Unit   decimal.Decimal
}

// WholeUnit is the default policy: nearest whole currency unit, ties away from zero.
func WholeUnit() Policy {
	return Policy{Method: HalfUp, Unit: one}
}

// New builds a policy, defaulting an unknown method to HALF_UP and a non-positive unit to 1.
func New(method Method, unit decimal.Decimal) Policy {
	if !method.Valid() {
		method = HalfUp
	}
	if !unit.IsPositive() {
		unit = one
	}
	return Policy{Method: method, Unit: unit}
}

// Parse accepts the method name case-insensitively.
func Parse(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown rounding method %q", s)
	}
	return m, nil
}

func (m Method) Valid() bool {
	switch m {
	case HalfUp, HalfDown, Ceil, Floor:
		return true
	}
	return false
}

// Apply rounds amount to the nearest multiple of the policy unit.
func (p Policy) Apply(amount decimal.Decimal) decimal.Decimal {
	unit := p.Unit
	if !unit.IsPositive() {
		unit = one
	}
	q := amount.Div(unit)

	switch p.Method {
	case Ceil:
		q = q.RoundCeil(0)
	case Floor:
		q = q.RoundFloor(0)
	case HalfDown:
		frac := q.Sub(q.Truncate(0)).Abs()
		if frac.GreaterThan(half) {
			q = q.RoundUp(0)
		} else {
			q = q.RoundDown(0)
		}
	default:
		q = q.Round(0)
	}
	return q.Mul(unit)
}

// Cents rounds to 0.01, half away from zero. Used for pro-rata and per-component amounts.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return Policy{Method: HalfUp, Unit: cent}.Apply(amount)
}

// CeilWhole rounds up to the next whole unit (statutory state-insurance convention).
func CeilWhole(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundCeil(0)
}
