package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Activity is one logged field event.
type Activity struct {
	ID           uuid.UUID
	ExternalRef  string
	Type         string
	ActivityDate time.Time
	Territory    string
	Zone         string
	BusinessUnit string
	State        string
	Crop         string
	Product      string
	Status       string
	FarmerCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Farmer is one contact identity.
type Farmer struct {
	ID                uuid.UUID
	Name              string
	Phone             string
	Village           string
	Territory         string
	State             string
	PreferredLanguage string
}

// CreateActivityParams holds an activity to ingest.
type CreateActivityParams struct {
	ExternalRef  string
	Type         string
	ActivityDate time.Time
	Territory    string
	Zone         string
	BusinessUnit string
	State        string
	Crop         string
	Product      string
}

// UpsertFarmerParams holds one farmer reference from ingestion. Phone is
// already normalized and is the dedupe key.
type UpsertFarmerParams struct {
	Name              string
	Phone             string
	Village           string
	Territory         string
	State             string
	PreferredLanguage string
}

// ListFilter narrows activity listings.
type ListFilter struct {
	Status    string
	Territory string
	Limit     int
}

// Repository is the persistence contract for activities and farmers.
type Repository interface {
	// CreateActivity inserts an activity; returns the existing row's id and
	// created=false when the external_ref was already ingested.
	CreateActivity(ctx context.Context, params CreateActivityParams) (uuid.UUID, bool, error)

	GetActivity(ctx context.Context, id uuid.UUID) (Activity, error)
	ListActivities(ctx context.Context, filter ListFilter) ([]Activity, error)

	// UpdateStatus moves the activity lifecycle. The engine is the only caller
	// apart from admin override.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// UpsertFarmer inserts or refreshes a farmer by phone and returns its id.
	UpsertFarmer(ctx context.Context, params UpsertFarmerParams) (uuid.UUID, error)

	// LinkFarmer attaches a farmer to an activity's list, idempotently.
	LinkFarmer(ctx context.Context, activityID, farmerID uuid.UUID) error

	// FarmerIDs returns the activity's farmer references that still resolve,
	// plus the count of references whose farmer row no longer exists.
	FarmerIDs(ctx context.Context, activityID uuid.UUID) ([]uuid.UUID, int, error)
}
