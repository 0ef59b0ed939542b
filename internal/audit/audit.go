package audit

import (
	"encoding/json"
	"log"
	"time"
)

// Event is one structured ledger audit record, emitted as a single JSON
// log line alongside the durable credit_transactions row.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogCredit(transactionID, accountID string, amount int64, action string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "CREDIT",
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"action": action},
	})
}

func (a *Logger) LogDebit(transactionID, accountID string, amount int64, action string) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "DEBIT",
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        -amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"action": action},
	})
}

func (a *Logger) LogError(transactionID, accountID string, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		TransactionID: transactionID,
		AccountID:     accountID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
