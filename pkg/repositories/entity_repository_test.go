//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/scrutinise/ownership-engine/pkg/apperrors"
	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/testhelpers"
)

func setupEntityRepo(t *testing.T) EntityRepository {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	return NewEntityRepository(testDB.DB)
}

func createEntity(t *testing.T, repo EntityRepository, name string) *models.EntityRecord {
	t.Helper()
	number := "01234567"
	entity := &models.EntityRecord{
		InputName:     name,
		RegistryKind:  models.RegistryKindCompany,
		CompanyNumber: &number,
	}
	if err := repo.Create(context.Background(), entity); err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	return entity
}

func TestEntityRepository_CreateAndGet(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Acme Holdings Limited")
	if entity.ID == uuid.Nil {
		t.Fatal("expected ID to be assigned on create")
	}
	if entity.Status != models.EnrichmentStatusPending {
		t.Fatalf("expected status pending, got %s", entity.Status)
	}

	got, err := repo.GetByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.InputName != "Acme Holdings Limited" {
		t.Errorf("expected input name preserved, got %q", got.InputName)
	}
	if got.CompanyNumber == nil || *got.CompanyNumber != "01234567" {
		t.Errorf("expected company number preserved, got %v", got.CompanyNumber)
	}
}

func TestEntityRepository_GetByID_NotFound(t *testing.T) {
	repo := setupEntityRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEntityRepository_TryStart_Exclusivity(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Start Guard Limited")

	if err := repo.TryStart(ctx, entity.ID); err != nil {
		t.Fatalf("first TryStart failed: %v", err)
	}

	err := repo.TryStart(ctx, entity.ID)
	if !errors.Is(err, apperrors.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive on second start, got %v", err)
	}
}

func TestEntityRepository_TryStart_TerminalStatusRejected(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Done Limited")
	if err := repo.UpdateStatus(ctx, entity.ID, models.EnrichmentStatusDone); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	err := repo.TryStart(ctx, entity.ID)
	if !errors.Is(err, apperrors.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive for done record, got %v", err)
	}
}

func TestEntityRepository_SaveResult(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Result Limited")

	bundle := &models.EnrichmentBundle{
		CompanyNumber:    "01234567",
		ExtractionStatus: models.ExtractionStatusFound,
		RegularShareholders: []models.Shareholder{
			{Name: "JOHN SMITH", SharesHeld: 100, SharesKnown: true, Percentage: 100},
		},
		TotalShares: 100,
	}
	if err := repo.SaveResult(ctx, entity.ID, bundle); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	got, err := repo.GetByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.EnrichmentStatusDone {
		t.Errorf("expected status done, got %s", got.Status)
	}
	if got.Bundle == nil {
		t.Fatal("expected bundle to round-trip")
	}
	if len(got.Bundle.RegularShareholders) != 1 || got.Bundle.RegularShareholders[0].Name != "JOHN SMITH" {
		t.Errorf("bundle shareholders did not round-trip: %+v", got.Bundle.RegularShareholders)
	}
}

func TestEntityRepository_RecordFailure(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Flaky Limited")

	if err := repo.RecordFailure(ctx, entity.ID, models.EnrichmentStatusPending, 2, "registry transient HTTP 503"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	got, err := repo.GetByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RetryCount != 2 {
		t.Errorf("expected retry count 2, got %d", got.RetryCount)
	}
	if got.LastError == nil || *got.LastError != "registry transient HTTP 503" {
		t.Errorf("expected last error stored, got %v", got.LastError)
	}
	if got.Status != models.EnrichmentStatusPending {
		t.Errorf("expected status pending, got %s", got.Status)
	}
}

func TestEntityRepository_RequeueAbandoned(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Abandoned Limited")
	if err := repo.TryStart(ctx, entity.ID); err != nil {
		t.Fatalf("TryStart failed: %v", err)
	}

	n, err := repo.RequeueAbandoned(ctx)
	if err != nil {
		t.Fatalf("RequeueAbandoned failed: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected at least one record requeued, got %d", n)
	}

	got, err := repo.GetByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.EnrichmentStatusQueued {
		t.Errorf("expected status queued after requeue, got %s", got.Status)
	}
}

func TestEntityRepository_List_FilterByStatus(t *testing.T) {
	repo := setupEntityRepo(t)
	ctx := context.Background()

	entity := createEntity(t, repo, "Listable Limited")
	if err := repo.UpdateStatus(ctx, entity.ID, models.EnrichmentStatusSkipped); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	status := models.EnrichmentStatusSkipped
	entities, err := repo.List(ctx, &status, 50, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	found := false
	for _, e := range entities {
		if e.ID == entity.ID {
			found = true
		}
		if e.Status != models.EnrichmentStatusSkipped {
			t.Errorf("expected only skipped records, got %s", e.Status)
		}
	}
	if !found {
		t.Error("expected created record in filtered list")
	}
}
