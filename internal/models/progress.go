package models

import "encoding/json"

// MessageType discriminates the variants of ProgressMessage.
type MessageType string

const (
	MessageLog          MessageType = "log"
	MessageProgress     MessageType = "progress"
	MessageStatus       MessageType = "status"
	MessageFileComplete MessageType = "file_complete"
	MessageReviewItem   MessageType = "review_item"
	MessageFinish       MessageType = "finish"
)

// Log severities carried by log messages.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Overall job outcomes carried by finish messages.
const (
	OutcomeComplete = "Complete"
	OutcomeFailed   = "Failed"
)

// ReviewItem names a file that needs manual inspection and why.
type ReviewItem struct {
	FileName string `json:"filename"`
	Reason   string `json:"reason"`
}

// ProgressMessage is one event emitted by a running job. Only the fields that
// belong to its Type are meaningful; use the constructors below.
type ProgressMessage struct {
	Type    MessageType
	Text    string
	Level   string
	Current int
	Total   int
	Status  FileStatus
	Review  ReviewItem
	Outcome string
}

func LogMessage(level, text string) ProgressMessage {
	return ProgressMessage{Type: MessageLog, Level: level, Text: text}
}

func ProgressCounter(current, total int) ProgressMessage {
	return ProgressMessage{Type: MessageProgress, Current: current, Total: total}
}

func StatusMessage(text string) ProgressMessage {
	return ProgressMessage{Type: MessageStatus, Text: text}
}

func FileCompleteMessage(status FileStatus) ProgressMessage {
	return ProgressMessage{Type: MessageFileComplete, Status: status}
}

func ReviewItemMessage(fileName, reason string) ProgressMessage {
	return ProgressMessage{Type: MessageReviewItem, Review: ReviewItem{FileName: fileName, Reason: reason}}
}

func FinishMessage(outcome string) ProgressMessage {
	return ProgressMessage{Type: MessageFinish, Outcome: outcome}
}

// MarshalJSON renders the wire shape polled by the front end, e.g.
// {"type":"progress","current":2,"total":5}.
func (m ProgressMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case MessageLog:
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Msg   string      `json:"msg"`
			Level string      `json:"level"`
		}{m.Type, m.Text, m.Level})
	case MessageProgress:
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Current int         `json:"current"`
			Total   int         `json:"total"`
		}{m.Type, m.Current, m.Total})
	case MessageStatus:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Msg  string      `json:"msg"`
		}{m.Type, m.Text})
	case MessageFileComplete:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			Status FileStatus  `json:"status"`
		}{m.Type, m.Status})
	case MessageReviewItem:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Data ReviewItem  `json:"data"`
		}{m.Type, m.Review})
	case MessageFinish:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			Status string      `json:"status"`
		}{m.Type, m.Outcome})
	default:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{m.Type})
	}
}
