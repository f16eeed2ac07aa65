package logging

import (
	"encoding/json"
	"log"
	"time"
)

// Fields is one structured log line. Empty fields are omitted.
type Fields struct {
	Service          string `json:"service"`
	TxID             string `json:"txid,omitempty"`
	BusinessEntityID int64  `json:"business_entity_id,omitempty"`
	EventID          string `json:"event_id,omitempty"`
	Step             string `json:"step,omitempty"`
	Status           string `json:"status,omitempty"`
	Level            string `json:"level,omitempty"`
	DurationMS       int64  `json:"duration_ms,omitempty"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
}

type line struct {
	Fields
	Timestamp string `json:"timestamp"`
}

func Log(fields Fields) {
	if fields.Level == "" {
		fields.Level = "info"
	}
	data, err := json.Marshal(line{Fields: fields, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		log.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	log.Print(string(data))
}

func Warn(fields Fields) {
	fields.Level = "warn"
	Log(fields)
}

// Error logs fields at error level with err attached.
func Error(fields Fields, err error) {
	fields.Level = "error"
	if err != nil {
		fields.Error = err.Error()
	}
	Log(fields)
}
