package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fred-backend/internal/domain"
	perrors "github.com/yungbote/fred-backend/internal/pkg/errors"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
)

func TestCrisisFlagRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewCrisisFlagRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx)
	base := time.Now().UTC().Add(-time.Hour)

	var created []*types.CrisisFlag
	for i, sev := range []string{types.SeverityLow, types.SeverityHigh, types.SeverityHigh} {
		rows, err := repo.Create(dbc, []*types.CrisisFlag{{
			UserID:         u.ID,
			Severity:       sev,
			Indicators:     types.EncodeIndicators([]string{"want to die"}),
			MessageSnippet: "snippet",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		created = append(created, rows[0])
	}

	high, total, err := repo.List(dbc, CrisisFlagFilter{Severity: types.SeverityHigh}, 0, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(high) != 2 || high[0].ID != created[2].ID {
		t.Fatalf("List(high): total=%d rows=%d, want newest first", total, len(high))
	}
	if got := high[0].IndicatorList(); len(got) != 1 || got[0] != "want to die" {
		t.Fatalf("IndicatorList=%v", got)
	}

	operator := uuid.New()
	notes := "called back"
	handled, err := repo.MarkHandled(dbc, created[1].ID, operator, &notes, time.Now())
	if err != nil {
		t.Fatalf("MarkHandled: %v", err)
	}
	if !handled.Handled || handled.HandledBy == nil || *handled.HandledBy != operator || handled.HandledAt == nil {
		t.Fatalf("MarkHandled: unexpected row %+v", handled)
	}

	other := "overwrite"
	again, err := repo.MarkHandled(dbc, created[1].ID, uuid.New(), &other, time.Now())
	if !errors.Is(err, perrors.ErrAlreadyHandled) {
		t.Fatalf("MarkHandled (again): err=%v, want ErrAlreadyHandled", err)
	}
	if again.Notes == nil || *again.Notes != notes || *again.HandledBy != operator {
		t.Fatalf("MarkHandled (again): handled flag was overwritten: %+v", again)
	}

	if _, err := repo.MarkHandled(dbc, uuid.New(), operator, nil, time.Now()); !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("MarkHandled (missing): err=%v, want ErrNotFound", err)
	}

	unhandled := false
	open, total, err := repo.List(dbc, CrisisFlagFilter{Handled: &unhandled}, 0, 20)
	if err != nil {
		t.Fatalf("List(unhandled): %v", err)
	}
	if total != 2 || len(open) != 2 {
		t.Fatalf("List(unhandled): total=%d rows=%d, want 2", total, len(open))
	}
}
