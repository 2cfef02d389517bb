package models

import (
	"fmt"
	"strconv"
)

type TransactionStatus string

const (
	TransactionStatusUnpaid      TransactionStatus = "Unpaid"
	TransactionStatusPartialPaid TransactionStatus = "Partial Paid"
	TransactionStatusPaid        TransactionStatus = "Paid"
)

func (s *TransactionStatus) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	statuses := map[string]TransactionStatus{
		"Unpaid":       TransactionStatusUnpaid,
		"Partial Paid": TransactionStatusPartialPaid,
		"Paid":         TransactionStatusPaid,
	}
	v, ok := statuses[str]
	if !ok {
		return fmt.Errorf("%s is not a valid TransactionStatus", str)
	}
	*s = v
	return nil
}

// TransactionDirection distinguishes the two symmetric workflows: a Sale moves
// stock out of the store, a Purchase moves stock in.
type TransactionDirection string

const (
	TransactionDirectionSale     TransactionDirection = "Sale"
	TransactionDirectionPurchase TransactionDirection = "Purchase"
)

type ObligationType string

const (
	ObligationTypeReceivable ObligationType = "Receivable"
	ObligationTypePayable    ObligationType = "Payable"
)

type StockAlertPublishStatus string

const (
	StockAlertPublishStatusPending   StockAlertPublishStatus = "Pending"
	StockAlertPublishStatusPublished StockAlertPublishStatus = "Published"
	StockAlertPublishStatusFailed    StockAlertPublishStatus = "Failed"
)
