package status

import "errors"

var (
	ErrCartLocked        = errors.New("cart: unpaid locked cart already exists")
	ErrTicketTypeSoldOut = errors.New("catalog: ticket type not found or sold out")
	ErrGatewaysDown      = errors.New("gateway: all payment gateways unavailable")
	ErrTxNotFound        = errors.New("transaction: reference not found")
	ErrAlreadyIssued     = errors.New("ticket: already issued for transaction")
	ErrAlreadyScanned    = errors.New("ticket: already scanned")
	ErrTicketNotFound    = errors.New("ticket: not found")
	ErrBadPayload        = errors.New("callback: unrecognized payload")
)
