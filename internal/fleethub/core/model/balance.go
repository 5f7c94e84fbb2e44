package model

import "encoding/json"

// BalanceStatus classifies the result of a balance check.
type BalanceStatus string

const (
	BalanceSuccess  BalanceStatus = "success"
	BalanceNotFound BalanceStatus = "not_found"
	BalanceError    BalanceStatus = "error"
)

// BalanceOutcome is what the balance service said about a serial number.
// Data holds the decoded response body on success.
type BalanceOutcome struct {
	Status  BalanceStatus   `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
