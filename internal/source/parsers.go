package source

import (
	"time"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
)

// NewExportParser returns the bulk export parser for a network
func NewExportParser(method payment.Method, loc *time.Location) (ExportParser, error) {
	switch method {
	case payment.MethodVenmo:
		return NewVenmoExportParser(loc), nil
	case payment.MethodCashApp:
		return NewCashAppExportParser(loc), nil
	case payment.MethodPayPal:
		return NewPayPalExportParser(loc), nil
	case payment.MethodZelle:
		return NewZelleStatementParser(loc), nil
	}
	return nil, payment.ErrUnknownMethod{Value: string(method)}
}
