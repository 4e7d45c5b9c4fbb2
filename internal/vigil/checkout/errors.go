package checkout

import "errors"

var ErrUnknownVoucher = errors.New("unknown voucher code")
