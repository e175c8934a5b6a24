package components

import "errors"

// ErrUnmatchedPayment is returned when posting a payment that has no tenant
var ErrUnmatchedPayment = errors.New("payment is not attributed to a tenant")
