package domain

// Feed event operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
)

// FeedEvent is the change-feed envelope: one mutation observed on the task
// table. The feed is at-least-once; consumers must tolerate redelivery.
type FeedEvent struct {
	Operation string `json:"operation"`
	Table     string `json:"table"`
	Row       Task   `json:"row"`
}
