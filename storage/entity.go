package storage

import (
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"fielddispatch/domain"
)

// All tasks live in a single partition so a pending-task scan is one
// partition query.
const taskPartition = "task"

type taskEntity struct {
	aztables.Entity
	TransferNumber string `json:"TransferNumber"`
	Title          string `json:"Title"`
	Category       string `json:"Category"`
	FromLocation   string `json:"FromLocation"`
	ToLocation     string `json:"ToLocation"`
	TransferDate   string `json:"TransferDate"`
	TransferTime   string `json:"TransferTime"`
	Notes          string `json:"Notes"`
	ClientName     string `json:"ClientName"`
	ClientPhone    string `json:"ClientPhone"`
	GmapLink       string `json:"GmapLink"`
	WorkerID       string `json:"WorkerId"`
	WorkerName     string `json:"WorkerName"`
	DriverID       string `json:"DriverId"`
	DriverStatus   string `json:"DriverStatus"`
	AcceptedAt     string `json:"AcceptedAt"`
	CompletedAt    string `json:"CompletedAt"`
}

func entityFromTask(t domain.Task) taskEntity {
	return taskEntity{
		Entity:         aztables.Entity{PartitionKey: taskPartition, RowKey: t.ID},
		TransferNumber: t.TransferNumber,
		Title:          t.Title,
		Category:       t.Category,
		FromLocation:   t.FromLocation,
		ToLocation:     t.ToLocation,
		TransferDate:   t.TransferDate,
		TransferTime:   t.TransferTime,
		Notes:          t.Notes,
		ClientName:     t.ClientName,
		ClientPhone:    t.ClientPhone,
		GmapLink:       t.GmapLink,
		WorkerID:       t.WorkerID,
		WorkerName:     t.WorkerName,
		DriverID:       t.DriverID,
		DriverStatus:   string(t.DriverStatus),
		AcceptedAt:     t.AcceptedAt,
		CompletedAt:    t.CompletedAt,
	}
}

func taskFromEntity(ent taskEntity) domain.Task {
	return domain.Task{
		ID:             ent.RowKey,
		TransferNumber: ent.TransferNumber,
		Title:          ent.Title,
		Category:       ent.Category,
		FromLocation:   ent.FromLocation,
		ToLocation:     ent.ToLocation,
		TransferDate:   ent.TransferDate,
		TransferTime:   ent.TransferTime,
		Notes:          ent.Notes,
		ClientName:     ent.ClientName,
		ClientPhone:    ent.ClientPhone,
		GmapLink:       ent.GmapLink,
		WorkerID:       ent.WorkerID,
		WorkerName:     ent.WorkerName,
		DriverID:       ent.DriverID,
		DriverStatus:   domain.DriverStatus(ent.DriverStatus),
		AcceptedAt:     ent.AcceptedAt,
		CompletedAt:    ent.CompletedAt,
	}
}

func decodeTaskEntity(data []byte) (taskEntity, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return taskEntity{}, err
	}
	return ent, nil
}
