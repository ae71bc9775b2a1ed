package models

import "time"

// PrintStatus is the outcome of one delivery attempt.
type PrintStatus string

const (
	PrintStatusSuccess  PrintStatus = "success"
	PrintStatusRetrying PrintStatus = "retrying"
	PrintStatusFailed   PrintStatus = "failed"
)

// PrintLogEntry is an immutable record of one print delivery attempt.
// Entries are appended for every attempt outcome, including intermediate
// retries, and are never mutated afterwards.
type PrintLogEntry struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	PrinterID    string      `json:"printer_id"`
	PrinterName  string      `json:"printer_name"`
	OrderNumber  int         `json:"order_number"`
	Status       PrintStatus `json:"status"`
	Attempts     int         `json:"attempts"` // 1-based count at record time
	ErrorMessage string      `json:"error_message,omitempty"`
	Request      string      `json:"request,omitempty"`  // truncated payload snippet
	Response     string      `json:"response,omitempty"` // truncated response snippet
}
