package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/satriahrh/rev-voice/domain"
	"github.com/satriahrh/rev-voice/domain/entities"
)

// ParseControlMessage decodes a text frame sent by the client. Only
// listening_start and listening_end are accepted.
func ParseControlMessage(raw []byte) (domain.ControlMessage, error) {
	var msg domain.ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.ControlMessage{}, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case domain.MessageTypeListeningStart:
		msg.MIMEType = entities.NormalizeAudioMIMEType(msg.MIMEType)
		if msg.Filename == "" {
			msg.Filename = entities.DefaultAudioFilename
		}
		return msg, nil
	case domain.MessageTypeListeningEnd:
		return msg, nil
	case "":
		return domain.ControlMessage{}, fmt.Errorf("message missing type field")
	default:
		return domain.ControlMessage{}, fmt.Errorf("unsupported message type: %s", msg.Type)
	}
}

// CreateResponseMessage encodes a successful relay reply.
func CreateResponseMessage(text string) []byte {
	payload, _ := json.Marshal(domain.ProcessAudioResponse{
		Type:    domain.MessageTypeResponse,
		Success: true,
		Text:    text,
	})
	return payload
}

// CreateErrorMessage encodes a failure with the status the HTTP endpoint
// would have answered with.
func CreateErrorMessage(status int, message string) []byte {
	payload, _ := json.Marshal(domain.ErrorResponse{
		Type:   domain.MessageTypeError,
		Status: status,
		Error:  message,
	})
	return payload
}
