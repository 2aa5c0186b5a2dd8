package domain

import "sort"

// Partitions is one operator's view of the task set: claimable tasks, tasks
// they currently hold, and tasks they finished or had cancelled.
type Partitions struct {
	Available   []Task `json:"available"`
	MineActive  []Task `json:"mineActive"`
	MineHistory []Task `json:"mineHistory"`
}

// Partition derives the three partitions as pure filters over the latest
// snapshot per task id. It is recomputed wholesale on every feed event so the
// partitions can never drift apart.
func Partition(tasks map[string]Task, operatorID string) Partitions {
	var p Partitions
	for _, t := range tasks {
		switch {
		case t.DriverStatus == StatusPending && !t.Assigned():
			p.Available = append(p.Available, t)
		case t.DriverID == operatorID && !t.DriverStatus.Terminal():
			p.MineActive = append(p.MineActive, t)
		case t.DriverID == operatorID && t.DriverStatus.Terminal():
			p.MineHistory = append(p.MineHistory, t)
		}
	}
	sortTasks(p.Available)
	sortTasks(p.MineActive)
	sortTasks(p.MineHistory)
	return p
}

// sortTasks orders by scheduled date, then time, then transfer number so
// repeated recomputation yields a stable listing.
func sortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.TransferDate != b.TransferDate {
			return a.TransferDate < b.TransferDate
		}
		if a.TransferTime != b.TransferTime {
			return a.TransferTime < b.TransferTime
		}
		return a.TransferNumber < b.TransferNumber
	})
}
