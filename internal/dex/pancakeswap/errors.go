// =============================
// File: internal/dex/pancakeswap/errors.go
// =============================
package pancakeswap

import "errors"

// Ошибки разбора ответа API. Сетевые ошибки оборачиваются как есть.
var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrMalformedPayload = errors.New("malformed json payload")
	ErrFieldMissing     = errors.New("field missing in response")
	ErrNotNumeric       = errors.New("field is not numeric")
	ErrNegativeValue    = errors.New("field is negative")
)

// isPayloadError отличает ошибки содержимого ответа: их нет смысла повторять.
func isPayloadError(err error) bool {
	return errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrFieldMissing) ||
		errors.Is(err, ErrNotNumeric) ||
		errors.Is(err, ErrNegativeValue)
}
