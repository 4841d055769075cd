package crisis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fred-backend/internal/data/repos"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/modules/safety"
	"github.com/yungbote/fred-backend/internal/observability"
	perrors "github.com/yungbote/fred-backend/internal/pkg/errors"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const (
	PageSize  = 20
	TaskAlert = "crisis.alert"
)

type TaskQueue interface {
	Enqueue(task runtime.Task) error
}

// AlertTask is the payload of a TaskAlert task. It deliberately holds no message text.
type AlertTask struct {
	FlagID     uuid.UUID
	Severity   string
	Indicators []string
	CreatedAt  time.Time
}

type UsecasesDeps struct {
	Log     *logger.Logger
	Flags   repos.CrisisFlagRepo
	Lexicon *safety.Lexicon
	// Queue receives alert tasks for high-severity flags; nil disables alerting.
	Queue          TaskQueue
	RedactSnippets bool
	Now            func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
	log  *logger.Logger
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Lexicon == nil {
		deps.Lexicon = safety.DefaultLexicon()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps, log: deps.Log.With("service", "CrisisFlags")}
}

// Record stores a flag for a positive assessment. conversationID may be nil when the turn has not
// resolved a conversation yet.
func (u Usecases) Record(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, message string, a safety.Assessment) (*types.CrisisFlag, error) {
	if !a.IsCrisis {
		return nil, nil
	}
	row := &types.CrisisFlag{
		UserID:         userID,
		ConversationID: conversationID,
		Severity:       a.Severity,
		Indicators:     types.EncodeIndicators(a.Indicators),
		MessageSnippet: u.deps.Lexicon.Snippet(message, u.deps.RedactSnippets),
		CreatedAt:      u.deps.Now().UTC(),
	}
	rows, err := u.deps.Flags.Create(dbctx.Context{Ctx: ctx}, []*types.CrisisFlag{row})
	if err != nil {
		return nil, err
	}
	flag := rows[0]
	observability.CrisisFlags.WithLabelValues(flag.Severity).Inc()
	u.log.Warn("crisis flag recorded",
		"flag_id", flag.ID.String(),
		"user_id", userID.String(),
		"severity", flag.Severity,
		"indicator_count", len(a.Indicators),
	)

	if flag.Severity == types.SeverityHigh && u.deps.Queue != nil {
		task := runtime.Task{Type: TaskAlert, Payload: AlertTask{
			FlagID:     flag.ID,
			Severity:   flag.Severity,
			Indicators: append([]string(nil), a.Indicators...),
			CreatedAt:  flag.CreatedAt,
		}}
		if err := u.deps.Queue.Enqueue(task); err != nil {
			u.log.Warn("crisis alert not queued", "flag_id", flag.ID.String(), "error", err)
		}
	}
	return flag, nil
}

type ListQuery struct {
	Severity string
	Handled  *bool
	Page     int
}

// FlagView is the operator-facing shape of a flag.
type FlagView struct {
	ID             uuid.UUID  `json:"id"`
	UserID         string     `json:"userId"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
	Severity       string     `json:"severity"`
	Indicators     []string   `json:"indicators"`
	MessageSnippet string     `json:"messageSnippet"`
	Handled        bool       `json:"handled"`
	HandledBy      *uuid.UUID `json:"handledBy,omitempty"`
	HandledAt      *time.Time `json:"handledAt,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type Page struct {
	Flags      []FlagView `json:"flags"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	Total      int64      `json:"total"`
	TotalPages int64      `json:"totalPages"`
}

func (u Usecases) List(ctx context.Context, q ListQuery) (*Page, error) {
	sev := strings.ToLower(strings.TrimSpace(q.Severity))
	switch sev {
	case "", types.SeverityHigh, types.SeverityMedium, types.SeverityLow:
	default:
		return nil, apierr.Public(http.StatusBadRequest, "invalid_severity", "severity must be high, medium or low", perrors.ErrInvalidArgument)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	rows, total, err := u.deps.Flags.List(dbctx.Context{Ctx: ctx}, repos.CrisisFlagFilter{Severity: sev, Handled: q.Handled}, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_crisis_flags_failed", err)
	}
	out := &Page{
		Flags:      make([]FlagView, 0, len(rows)),
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: (total + PageSize - 1) / PageSize,
	}
	for _, f := range rows {
		out.Flags = append(out.Flags, toView(f))
	}
	return out, nil
}

// Handle marks a flag handled once. A second attempt is a conflict and leaves the first record intact.
func (u Usecases) Handle(ctx context.Context, operatorID, flagID uuid.UUID, notes string) (*FlagView, error) {
	var np *string
	if n := strings.TrimSpace(notes); n != "" {
		np = &n
	}
	row, err := u.deps.Flags.MarkHandled(dbctx.Context{Ctx: ctx}, flagID, operatorID, np, u.deps.Now())
	switch {
	case errors.Is(err, perrors.ErrNotFound):
		return nil, apierr.Public(http.StatusNotFound, "crisis_flag_not_found", "Crisis flag not found", fmt.Errorf("crisis flag %s: %w", flagID, err))
	case errors.Is(err, perrors.ErrAlreadyHandled):
		return nil, apierr.Public(http.StatusConflict, "crisis_flag_already_handled", "Crisis flag has already been handled", err)
	case err != nil:
		return nil, apierr.New(http.StatusInternalServerError, "handle_crisis_flag_failed", err)
	}
	u.log.Info("crisis flag handled", "flag_id", flagID.String(), "handled_by", operatorID.String())
	v := toView(row)
	return &v, nil
}

func toView(f *types.CrisisFlag) FlagView {
	ind := f.IndicatorList()
	if ind == nil {
		ind = []string{}
	}
	return FlagView{
		ID:             f.ID,
		UserID:         ShortID(f.UserID),
		ConversationID: f.ConversationID,
		Severity:       f.Severity,
		Indicators:     ind,
		MessageSnippet: f.MessageSnippet,
		Handled:        f.Handled,
		HandledBy:      f.HandledBy,
		HandledAt:      f.HandledAt,
		Notes:          f.Notes,
		CreatedAt:      f.CreatedAt,
	}
}

// ShortID renders the first 8 characters of an id followed by "...".
func ShortID(id uuid.UUID) string {
	return id.String()[:8] + "..."
}
