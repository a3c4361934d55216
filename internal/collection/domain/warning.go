package domain

import (
	"fmt"
	"strconv"
)

// WarningCode identifies a non-fatal finding returned beside a result
type WarningCode string

const WarningAmountMismatch WarningCode = "AMOUNT_MISMATCH"

// Warning is a non-fatal finding. The operation that produced it succeeded.
type Warning struct {
	Code    WarningCode       `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// AmountMismatch reports an explicit actual amount that differs from the
// paper-type bucket total
func AmountMismatch(actual, bucketTotal float64) Warning {
	return Warning{
		Code:    WarningAmountMismatch,
		Message: fmt.Sprintf("actual amount %g differs from paper type total %g", actual, bucketTotal),
		Details: map[string]string{
			"actual_amount":     strconv.FormatFloat(actual, 'f', -1, 64),
			"paper_types_total": strconv.FormatFloat(bucketTotal, 'f', -1, 64),
		},
	}
}
