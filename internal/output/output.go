// Package output renders results in the JSON envelope shared by the CLI and
// the HTTP server.
package output

import "encoding/json"

type Result struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// Envelope wraps data, or err when it is non-nil.
func Envelope(data any, err error) Result {
	if err != nil {
		msg := err.Error()
		return Result{Success: false, Error: &msg}
	}
	return Result{Success: true, Data: data}
}

func Success(data any) string {
	b, _ := json.Marshal(Envelope(data, nil))
	return string(b)
}

func Error(err error) string {
	b, _ := json.Marshal(Envelope(nil, err))
	return string(b)
}
