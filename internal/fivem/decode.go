package fivem

import (
	"bytes"
	"encoding/json"
)

// The roster endpoint has shipped two shapes over the years: a bare array
// of player objects, and an envelope {"statusCode": 200, "data": [...]}.
// DecodeRoster accepts both and refuses to guess at anything else.
func DecodeRoster(body []byte) ([]Player, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnrecognizedShape
	}

	switch trimmed[0] {
	case '[':
		var players []Player
		if err := json.Unmarshal(trimmed, &players); err != nil {
			return nil, ErrUnrecognizedShape
		}
		return players, nil
	case '{':
		var envelope struct {
			StatusCode int      `json:"statusCode"`
			Data       []Player `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, ErrUnrecognizedShape
		}
		if envelope.StatusCode != 0 && envelope.StatusCode != 200 {
			return nil, &StatusError{Code: envelope.StatusCode}
		}
		if envelope.Data == nil {
			return nil, ErrUnrecognizedShape
		}
		return envelope.Data, nil
	default:
		return nil, ErrUnrecognizedShape
	}
}
