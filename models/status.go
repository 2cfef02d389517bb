package models

import "github.com/shopspring/decimal"

// DeriveTransactionStatus maps the tendered amount against the computed
// actual amount. Status is never set directly by a caller; every create and
// update re-derives it here.
//
//	tendered <= 0          => Unpaid
//	0 < tendered < actual  => Partial Paid
//	tendered >= actual     => Paid
func DeriveTransactionStatus(actualAmount, tenderedAmount decimal.Decimal) TransactionStatus {
	switch {
	case tenderedAmount.LessThanOrEqual(decimal.Zero):
		return TransactionStatusUnpaid
	case tenderedAmount.LessThan(actualAmount):
		return TransactionStatusPartialPaid
	default:
		return TransactionStatusPaid
	}
}
