package jsonrpc

import (
	"github.com/creachadair/jrpc2"
	"github.com/mezonai/remit/errors"
)

// CodeLedgerRejected is the JSON-RPC code for every refused ledger
// operation; the precise reason travels in the error data.
const CodeLedgerRejected jrpc2.Code = -32000

func toJRPC2Error(err error) error {
	if err == nil {
		return nil
	}
	le := errors.As(err)
	code := CodeLedgerRejected
	switch le.Code {
	case errors.ErrCodeInvalidInput:
		code = jrpc2.InvalidParams
	case errors.ErrCodeInternal:
		code = jrpc2.InternalError
	}
	return jrpc2.Errorf(code, "%s", le.Message).WithData(le)
}

func invalidParams(format string, args ...interface{}) error {
	return toJRPC2Error(errors.Newf(errors.ErrInvalidInput, format, args...))
}
