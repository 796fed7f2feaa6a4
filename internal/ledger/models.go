package ledger

import "time"

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindUsage    TransactionKind = "usage"
	KindRefund   TransactionKind = "refund"
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is one append-only credit ledger entry, newest first in every
// listing.
type Transaction struct {
	ID             string
	Kind           TransactionKind
	AmountCurrency float64
	CreditDelta    int
	Status         TransactionStatus
	Description    string
	CreatedAt      time.Time
}

// Stats is the derived credit snapshot. All fields are replaced atomically by
// a reconciliation; readers never observe a partial merge.
type Stats struct {
	Credits       int
	TotalSpent    float64
	ActiveNumbers int
	TotalNumbers  int
	ReceivedToday int
	SuccessRate   float64

	// PendingDelta is the sum of optimistic local predictions since the last
	// reconcile. It is a display hint only and resets to zero on reconcile.
	PendingDelta int

	ReconciledAt time.Time
}

// transactionPayload is the wire shape of a ledger entry.
type transactionPayload struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Credits       int       `json:"credits"`
	Status        string    `json:"status"`
	Description   string    `json:"description"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

func (p transactionPayload) toTransaction() Transaction {
	kind := KindUsage
	switch p.Type {
	case "credit_purchase", "purchase":
		kind = KindPurchase
	case "refund":
		kind = KindRefund
	}
	status := TxPending
	switch p.Status {
	case "completed":
		status = TxCompleted
	case "failed":
		status = TxFailed
	}
	return Transaction{
		ID:             p.ID,
		Kind:           kind,
		AmountCurrency: p.Amount,
		CreditDelta:    p.Credits,
		Status:         status,
		Description:    p.Description,
		CreatedAt:      p.CreatedAt,
	}
}

// statsPayload is the wire shape of GET /credits/stats.
type statsPayload struct {
	TotalCredits     int     `json:"totalCredits"`
	UsedCredits      int     `json:"usedCredits"`
	AvailableCredits int     `json:"availableCredits"`
	TotalSpent       float64 `json:"totalSpent"`
}

// historyPayload is the wire shape of GET /credits/history.
type historyPayload struct {
	Transactions []transactionPayload `json:"transactions"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	TotalPages   int                  `json:"totalPages"`
}
