package model

type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Notification is a templated message addressed to one recipient.
type Notification struct {
	To          string         `json:"to"`
	Template    string         `json:"template"`
	Subject     string         `json:"subject"`
	Data        map[string]any `json:"data,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}
