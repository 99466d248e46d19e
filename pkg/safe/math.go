package safe

import (
	"math"
)

// SafeAdd performs int64 addition and panics on overflow/underflow.
// Used for ledger invariants where overflow means corrupted state.
func SafeAdd(a, b int64) int64 {
	v, ok := CheckedAdd(a, b)
	if !ok {
		panic("CORE_SAFE_ADD_OVERFLOW")
	}
	return v
}

// SafeSub performs int64 subtraction and panics on overflow/underflow.
func SafeSub(a, b int64) int64 {
	v, ok := CheckedSub(a, b)
	if !ok {
		panic("CORE_SAFE_SUB_OVERFLOW")
	}
	return v
}

// SafeMul performs int64 multiplication and panics on overflow.
func SafeMul(a, b int64) int64 {
	v, ok := CheckedMul(a, b)
	if !ok {
		panic("CORE_SAFE_MUL_OVERFLOW")
	}
	return v
}

// SafeDiv performs int64 division and panics on division by zero.
func SafeDiv(a, b int64) int64 {
	v, ok := CheckedDiv(a, b)
	if !ok {
		panic("CORE_SAFE_DIV_INVALID")
	}
	return v
}

// CheckedAdd performs int64 addition, reporting overflow instead of panicking.
// Used on settlement paths where overflow must surface as a typed failure.
func CheckedAdd(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// CheckedSub performs int64 subtraction, reporting overflow.
func CheckedSub(a, b int64) (int64, bool) {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		return 0, false
	}
	return a - b, true
}

// CheckedMul performs int64 multiplication, reporting overflow.
func CheckedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > 0 {
		if b > 0 {
			if a > math.MaxInt64/b {
				return 0, false
			}
		} else {
			if b < math.MinInt64/a {
				return 0, false
			}
		}
	} else {
		if b > 0 {
			if a < math.MinInt64/b {
				return 0, false
			}
		} else {
			if a < math.MaxInt64/b {
				return 0, false
			}
		}
	}
	return a * b, true
}

// CheckedDiv performs int64 division, reporting division by zero and the
// MinInt64 / -1 overflow case.
func CheckedDiv(a, b int64) (int64, bool) {
	if b == 0 {
		return 0, false
	}
	if a == math.MinInt64 && b == -1 {
		return 0, false
	}
	return a / b, true
}
