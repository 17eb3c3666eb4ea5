package ledger

import "errors"

// ErrInvalidAddress rejects an owner address that fails ledger address
// validation, before anything is submitted.
var ErrInvalidAddress = errors.New("invalid ledger address")

// ErrInsufficientFunds indicates the paying account cannot cover fee + gas.
var ErrInsufficientFunds = errors.New("insufficient funds for analysis fee")

// ErrRejectedSignature indicates the transaction signature was refused.
var ErrRejectedSignature = errors.New("transaction signature rejected")

// ErrEventNotFound indicates the transaction was mined but the expected
// PaymentReceived event is absent from the receipt. Money has been spent
// with no usable correlation id, so this must never be collapsed into a
// generic transport failure.
var ErrEventNotFound = errors.New("payment event not found in receipt")

// ErrUnavailable indicates a ledger transport failure (RPC unreachable,
// timeout, malformed response).
var ErrUnavailable = errors.New("ledger unavailable")

// ErrNotImplemented marks a coordinator capability that is declared but not
// yet built, such as sponsored gasless transactions.
var ErrNotImplemented = errors.New("not implemented")
