package crisis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fred-backend/internal/data/repos"
	"github.com/yungbote/fred-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/modules/safety"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/sendgrid"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []runtime.Task
}

func (q *recordingQueue) Enqueue(task runtime.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func newUsecases(t *testing.T, q TaskQueue) Usecases {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return New(UsecasesDeps{Log: log, Flags: repos.NewCrisisFlagRepo(db, log), Queue: q, RedactSnippets: true})
}

func TestRecordRedactsAndQueuesHighSeverity(t *testing.T) {
	q := &recordingQueue{}
	uc := newUsecases(t, q)
	ctx := context.Background()
	userID := uuid.New()

	msg := "I want to die tonight, email me at sam@example.com or 0412 345 678"
	a := safety.Detect(msg)
	require.Equal(t, types.SeverityHigh, a.Severity)

	flag, err := uc.Record(ctx, userID, nil, msg, a)
	require.NoError(t, err)
	require.NotNil(t, flag)
	require.NotContains(t, flag.MessageSnippet, "sam@example.com")
	require.NotContains(t, flag.MessageSnippet, "0412 345 678")
	require.Contains(t, flag.MessageSnippet, "[REDACTED_EMAIL]")
	require.Contains(t, flag.MessageSnippet, "[REDACTED_PHONE]")
	require.Equal(t, a.Indicators, flag.IndicatorList())

	require.Len(t, q.tasks, 1)
	task := q.tasks[0]
	require.Equal(t, TaskAlert, task.Type)
	p, ok := task.Payload.(AlertTask)
	require.True(t, ok)
	require.Equal(t, flag.ID, p.FlagID)
}

func TestRecordSkipsAlertBelowHigh(t *testing.T) {
	q := &recordingQueue{}
	uc := newUsecases(t, q)
	a := safety.Detect("I thought about an overdose last year")
	require.True(t, a.IsCrisis)
	require.NotEqual(t, types.SeverityHigh, a.Severity)

	_, err := uc.Record(context.Background(), uuid.New(), nil, "I thought about an overdose last year", a)
	require.NoError(t, err)
	require.Empty(t, q.tasks)

	flag, err := uc.Record(context.Background(), uuid.New(), nil, "hello", safety.Detect("hello"))
	require.NoError(t, err)
	require.Nil(t, flag)
}

func TestListAndHandle(t *testing.T) {
	uc := newUsecases(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	convID := uuid.New()

	for i := 0; i < 23; i++ {
		_, err := uc.Record(ctx, userID, &convID, "I thought about an overdose last year", safety.Detect("I thought about an overdose last year"))
		require.NoError(t, err)
	}

	page, err := uc.List(ctx, ListQuery{Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Flags, PageSize)
	require.EqualValues(t, 23, page.Total)
	require.EqualValues(t, 2, page.TotalPages)
	require.Equal(t, userID.String()[:8]+"...", page.Flags[0].UserID)

	second, err := uc.List(ctx, ListQuery{Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Flags, 3)

	operator := uuid.New()
	target := page.Flags[0].ID
	handled, err := uc.Handle(ctx, operator, target, "called back")
	require.NoError(t, err)
	require.True(t, handled.Handled)
	require.Equal(t, operator, *handled.HandledBy)

	_, err = uc.Handle(ctx, uuid.New(), target, "again")
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae))
	require.Equal(t, http.StatusConflict, ae.Status)

	_, err = uc.Handle(ctx, operator, uuid.New(), "")
	require.True(t, errors.As(err, &ae))
	require.Equal(t, http.StatusNotFound, ae.Status)

	yes := true
	done, err := uc.List(ctx, ListQuery{Handled: &yes})
	require.NoError(t, err)
	require.Len(t, done.Flags, 1)
	require.Equal(t, "called back", *done.Flags[0].Notes)

	_, err = uc.List(ctx, ListQuery{Severity: "extreme"})
	require.True(t, errors.As(err, &ae))
	require.Equal(t, http.StatusBadRequest, ae.Status)
}

type fakeMail struct {
	sent []sendgrid.SendEmailRequest
}

func (f *fakeMail) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	f.sent = append(f.sent, req)
	return &sendgrid.SendEmailResult{StatusCode: http.StatusAccepted}, nil
}

func TestAlerterSendsIndicatorsOnly(t *testing.T) {
	mail := &fakeMail{}
	a := NewAlerter(AlerterDeps{Mail: mail, Recipients: []string{"oncall@fred.example", " "}})
	require.True(t, a.Enabled())

	id := uuid.New()
	err := a.Run(context.Background(), runtime.Task{Type: TaskAlert, Payload: AlertTask{
		FlagID:     id,
		Severity:   types.SeverityHigh,
		Indicators: []string{"kill myself", "tonight"},
	}})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	require.Len(t, mail.sent[0].To, 1)
	require.Contains(t, mail.sent[0].Text, id.String())
	require.True(t, strings.Contains(mail.sent[0].Text, "kill myself"))
}

func TestAlerterSkipsWhenUnconfigured(t *testing.T) {
	a := NewAlerter(AlerterDeps{Mail: &fakeMail{}})
	require.False(t, a.Enabled())
	require.NoError(t, a.Run(context.Background(), runtime.Task{Type: TaskAlert, Payload: AlertTask{FlagID: uuid.New()}}))

	require.Error(t, a.Run(context.Background(), runtime.Task{Type: TaskAlert, Payload: "nope"}))
}
