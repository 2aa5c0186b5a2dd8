package domain

// Task is the latest known snapshot of a transfer task.
type Task struct {
	ID             string       `json:"id"`
	TransferNumber string       `json:"transferNumber"`
	Title          string       `json:"title"`
	Category       string       `json:"category"`
	FromLocation   string       `json:"fromLocation"`
	ToLocation     string       `json:"toLocation"`
	TransferDate   string       `json:"transferDate"`
	TransferTime   string       `json:"transferTime"`
	Notes          string       `json:"notes,omitempty"`
	ClientName     string       `json:"clientName,omitempty"`
	ClientPhone    string       `json:"clientPhone,omitempty"`
	GmapLink       string       `json:"gmapLink,omitempty"`
	WorkerID       string       `json:"workerId,omitempty"`
	WorkerName     string       `json:"workerName,omitempty"`
	DriverID       string       `json:"driverId,omitempty"`
	DriverStatus   DriverStatus `json:"driverStatus"`
	AcceptedAt     string       `json:"acceptedAt,omitempty"`
	CompletedAt    string       `json:"completedAt,omitempty"`
}

// Assigned reports whether the task has an owner.
func (t Task) Assigned() bool {
	return t.DriverID != ""
}
