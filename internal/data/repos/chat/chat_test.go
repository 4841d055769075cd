package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
)

func TestConversationRepoOwnership(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewConversationRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, ctx, tx)
	stranger := testutil.SeedUser(t, ctx, tx)

	created, err := repo.Create(dbc, []*types.Conversation{{UserID: owner.ID, Title: "hello"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := created[0].ID

	got, err := repo.GetOwned(dbc, id, owner.ID)
	if err != nil || got == nil || got.Title != "hello" {
		t.Fatalf("GetOwned(owner)=%+v, %v", got, err)
	}
	if got, err := repo.GetOwned(dbc, id, stranger.ID); err != nil || got != nil {
		t.Fatalf("GetOwned(stranger)=%+v, %v; want nil, nil", got, err)
	}

	at := time.Now().UTC()
	if err := repo.SaveSummary(dbc, id, "themes", 25, at); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	got, _ = repo.GetByID(dbc, id)
	if !got.HasSummary() || *got.SummaryText != "themes" || got.SummaryMessageCount != 25 || got.LastSummaryAt == nil {
		t.Fatalf("SaveSummary: unexpected row %+v", got)
	}

	if ok, err := repo.SoftDeleteOwned(dbc, id, stranger.ID); err != nil || ok {
		t.Fatalf("SoftDeleteOwned(stranger)=%v, %v; want false", ok, err)
	}
	if ok, err := repo.SoftDeleteOwned(dbc, id, owner.ID); err != nil || !ok {
		t.Fatalf("SoftDeleteOwned(owner)=%v, %v; want true", ok, err)
	}
	if got, _ := repo.GetOwned(dbc, id, owner.ID); got != nil {
		t.Fatalf("GetOwned after delete: expected nil")
	}
}

func TestMessageRepoOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewMessageRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx)
	c := testutil.SeedConversation(t, ctx, tx, u.ID)
	base := time.Now().UTC().Add(-time.Hour)
	testutil.SeedMessages(t, ctx, tx, c.ID, 7, base)

	all, err := repo.ListByConversation(dbc, c.ID)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("ListByConversation: got %d, want 7", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatalf("ListByConversation: out of order at %d", i)
		}
	}
	if all[0].Role != types.RoleUser || all[1].Role != types.RoleAssistant {
		t.Fatalf("ListByConversation: unexpected roles %q, %q", all[0].Role, all[1].Role)
	}

	page, err := repo.ListPage(dbc, c.ID, 3, nil)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page) != 3 || page[0].ID != all[4].ID || page[2].ID != all[6].ID {
		t.Fatalf("ListPage: expected the last three in creation order")
	}
	before := page[0].CreatedAt
	older, err := repo.ListPage(dbc, c.ID, 3, &before)
	if err != nil {
		t.Fatalf("ListPage (before): %v", err)
	}
	if len(older) != 3 || older[2].ID != all[3].ID {
		t.Fatalf("ListPage (before): unexpected page")
	}

	counts, err := repo.CountByConversations(dbc, []uuid.UUID{c.ID, uuid.New()})
	if err != nil {
		t.Fatalf("CountByConversations: %v", err)
	}
	if counts[c.ID] != 7 {
		t.Fatalf("CountByConversations: got %d, want 7", counts[c.ID])
	}
}
