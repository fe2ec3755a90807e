package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the supported transfer rails.
type TransactionType string

const (
	TypeNEFT    TransactionType = "neft"
	TypeCard    TransactionType = "card"
	TypeContact TransactionType = "contact"
)

// TransactionTypes lists every type in the order used for one-hot encoding.
var TransactionTypes = []TransactionType{TypeCard, TypeNEFT, TypeContact}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeNEFT, TypeCard, TypeContact:
		return true
	}
	return false
}

// Reasons attached to suspicious transactions.
const (
	ReasonHighAmount          = "High transaction amount"
	ReasonFrequentSmall       = "Frequent small transactions to the same recipient"
	ReasonOddHours            = "Transaction at odd hours (2 AM - 5 AM)"
	ReasonNonDomesticContact  = "Transaction to a non-domestic contact number"
	Placeholder               = "-"
	DefaultDomesticPrefix     = "+91"
	internationalNumberPrefix = "+"
)

// Transaction is a single synthetic transfer together with its suspicion label.
type Transaction struct {
	ID            string
	SenderID      string
	ReceiverID    string
	Type          TransactionType
	Amount        decimal.Decimal
	PaymentMethod string
	CardNumber    string
	ExpiryDate    string
	CVV           string
	AccountNumber string
	IFSCCode      string
	ContactNumber string
	Timestamp     time.Time
	Suspicious    bool
	Reasons       []string
}

// Flag marks the transaction suspicious and records reason once.
func (t *Transaction) Flag(reason string) {
	t.Suspicious = true
	for _, existing := range t.Reasons {
		if existing == reason {
			return
		}
	}
	t.Reasons = append(t.Reasons, reason)
}

// Clone returns a copy that does not share the reasons slice.
func (t Transaction) Clone() Transaction {
	t.Reasons = append([]string(nil), t.Reasons...)
	return t
}

// ContactKind classifies a contact number.
type ContactKind int

const (
	ContactAbsent ContactKind = iota
	ContactDomestic
	ContactInternational
)

// ClassifyContact reports whether number is absent, domestic or international.
// Numbers without a leading '+' are local numbers and count as domestic.
func ClassifyContact(number, domesticPrefix string) ContactKind {
	number = strings.TrimSpace(number)
	if number == "" || number == Placeholder {
		return ContactAbsent
	}
	if domesticPrefix == "" {
		domesticPrefix = DefaultDomesticPrefix
	}
	if strings.HasPrefix(number, internationalNumberPrefix) && !strings.HasPrefix(number, domesticPrefix) {
		return ContactInternational
	}
	return ContactDomestic
}
