package models

// CallRecord is one entry of the shared call log.
// PatientName is a weak reference: the record outlives any roster change.
type CallRecord struct {
	PatientName string `json:"patientName"`
	Room        string `json:"room"`
	Timestamp   int64  `json:"timestamp"` // Unix milliseconds
}
