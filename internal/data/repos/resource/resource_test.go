package resource

import (
	"context"
	"testing"

	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
)

func TestResourceRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewResourceRepo(db, testutil.Logger(t))

	phone := "13 11 14"
	rows := []*types.Resource{
		{Name: "Lifeline", Type: "hotline", Description: "24/7 crisis support", Phone: &phone, Region: "National",
			Tags: types.EncodeTags([]string{"crisis", "24/7"}), Priority: 100, Active: true},
		{Name: "Beyond Blue", Type: "hotline", Description: "anxiety and depression", Region: "National",
			Tags: types.EncodeTags([]string{"anxiety"}), Priority: 90, Active: true},
		{Name: "Headspace Melbourne", Type: "service", Description: "youth", Priority: 90, Active: true},
		{Name: "Retired Line", Type: "hotline", Description: "gone", Priority: 500, Active: false},
	}
	if err := repo.UpsertByName(dbc, rows); err != nil {
		t.Fatalf("UpsertByName: %v", err)
	}

	active, err := repo.ListActive(dbc, ResourceFilter{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("ListActive: got %d rows, want 3", len(active))
	}
	if active[0].Name != "Lifeline" || active[1].Name != "Beyond Blue" || active[2].Name != "Headspace Melbourne" {
		t.Fatalf("ListActive order: %s, %s, %s", active[0].Name, active[1].Name, active[2].Name)
	}
	if active[2].Region != types.ResourceDefaultRegion {
		t.Fatalf("default region: got %q", active[2].Region)
	}

	crisis, err := repo.ListActive(dbc, ResourceFilter{Tag: "CRISIS"})
	if err != nil {
		t.Fatalf("ListActive(tag): %v", err)
	}
	if len(crisis) != 1 || crisis[0].Name != "Lifeline" {
		t.Fatalf("ListActive(tag): got %d rows", len(crisis))
	}
	services, err := repo.ListActive(dbc, ResourceFilter{Type: "service", Region: "Victoria"})
	if err != nil {
		t.Fatalf("ListActive(type,region): %v", err)
	}
	if len(services) != 1 || services[0].Name != "Headspace Melbourne" {
		t.Fatalf("ListActive(type,region): got %d rows", len(services))
	}

	// Re-seeding by name updates in place.
	if err := repo.UpsertByName(dbc, []*types.Resource{
		{Name: "Beyond Blue", Type: "hotline", Description: "updated", Region: "National", Priority: 10, Active: true},
	}); err != nil {
		t.Fatalf("UpsertByName(update): %v", err)
	}
	n, err := repo.Count(dbc)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Fatalf("Count: got %d, want 4", n)
	}
	active, err = repo.ListActive(dbc, ResourceFilter{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if last := active[len(active)-1]; last.Name != "Beyond Blue" || last.Description != "updated" {
		t.Fatalf("upsert did not update: %+v", last)
	}

	if err := repo.UpsertByName(dbc, []*types.Resource{{Name: "Bad", Type: "clinic", Description: "x"}}); err == nil {
		t.Fatalf("UpsertByName: expected invalid type error")
	}
}
