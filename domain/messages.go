package domain

// Message types exchanged on the chunked-upload WebSocket.
const (
	MessageTypeListeningStart = "listening_start"
	MessageTypeListeningEnd   = "listening_end"
	MessageTypeResponse       = "response"
	MessageTypeError          = "error"
)

// ControlMessage is a text frame sent by a client around its binary audio
// chunks.
type ControlMessage struct {
	Type     string `json:"type"`
	MIMEType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ProcessAudioResponse is the success body of the relay, over HTTP and
// WebSocket alike.
type ProcessAudioResponse struct {
	Type    string `json:"type,omitempty"`
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// ErrorResponse is the failure body of the relay.
type ErrorResponse struct {
	Type   string `json:"type,omitempty"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error"`
}
