package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/fred-backend/internal/data/repos"
	types "github.com/yungbote/fred-backend/internal/domain"
	"github.com/yungbote/fred-backend/internal/modules/gateway"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/apierr"
	"github.com/yungbote/fred-backend/internal/platform/dbctx"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

const (
	DefaultMaxTokens        = 1000
	DefaultMaxConversations = 20

	dateLayout = "2 January 2006"
)

type SystemSender interface {
	SendWithSystem(ctx context.Context, system, prompt string, opts gateway.Options) (*gateway.Result, error)
}

type UsecasesDeps struct {
	Log           *logger.Logger
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Model         SystemSender
	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens   int64
	Temperature float64
	// MaxConversations bounds one request; defaults to DefaultMaxConversations.
	MaxConversations int
	// Location renders conversation dates; defaults to UTC.
	Location *time.Location
}

type Usecases struct {
	deps UsecasesDeps
	log  *logger.Logger
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.MaxTokens <= 0 {
		deps.MaxTokens = DefaultMaxTokens
	}
	if deps.MaxConversations <= 0 {
		deps.MaxConversations = DefaultMaxConversations
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return Usecases{deps: deps, log: deps.Log.With("service", "HandoffSummarizer")}
}

type CopingStrategy struct {
	Strategy string `json:"strategy"`
	// Helpful is nil when the conversation does not say.
	Helpful *bool `json:"helpful"`
}

// Summary is the structured note a user can hand to a clinician.
type Summary struct {
	PatientContext    string           `json:"patientContext"`
	KeyThemes         []string         `json:"keyThemes"`
	EmotionalJourney  string           `json:"emotionalJourney"`
	CopingStrategies  []CopingStrategy `json:"copingStrategies"`
	RiskFactors       []string         `json:"riskFactors"`
	Recommendations   []string         `json:"recommendations"`
	ConversationDates string           `json:"conversationDates"`
}

// Generate summarizes the caller's own conversations, oldest first. Ids the caller does not own are
// skipped rather than reported.
func (u Usecases) Generate(ctx context.Context, userID uuid.UUID, conversationIDs []string) (_ *Summary, err error) {
	ctx, span := observability.Tracer().Start(ctx, "handoff.generate")
	defer span.End()

	result := "error"
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		observability.HandoffSummaries.WithLabelValues(result).Inc()
	}()

	if len(conversationIDs) == 0 {
		return nil, apierr.Public(http.StatusBadRequest, "missing_conversations", "At least one conversation ID is required", nil)
	}
	if len(conversationIDs) > u.deps.MaxConversations {
		return nil, apierr.Public(http.StatusBadRequest, "too_many_conversations",
			fmt.Sprintf("At most %d conversations can be summarized at once", u.deps.MaxConversations), nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	convs, err := u.ownedConversations(dbc, userID, conversationIDs)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, apierr.Public(http.StatusNotFound, "conversations_not_found", "No conversations found", nil)
	}
	span.SetAttributes(attribute.Int("handoff.conversations", len(convs)))

	var b strings.Builder
	for _, conv := range convs {
		msgs, err := u.deps.Messages.ListByConversation(dbc, conv.ID)
		if err != nil {
			return nil, apierr.New(http.StatusInternalServerError, "load_messages_failed", err)
		}
		u.writeTranscript(&b, conv, msgs)
	}

	res, err := u.deps.Model.SendWithSystem(ctx, gateway.HandoffInstruction, b.String(), gateway.Options{
		MaxTokens:   u.deps.MaxTokens,
		Temperature: u.deps.Temperature,
	})
	if err != nil {
		return nil, gateway.Unavailable(err)
	}

	out, ok := parseSummary(res.Text)
	if !ok {
		u.log.Warn("handoff reply was not valid JSON", "reply_chars", len(res.Text))
		result = "unparsed"
		out = &Summary{PatientContext: strings.TrimSpace(res.Text)}
	} else {
		result = "ok"
	}
	out.normalize()
	return out, nil
}

func (u Usecases) ownedConversations(dbc dbctx.Context, userID uuid.UUID, raw []string) ([]*types.Conversation, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	out := make([]*types.Conversation, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		conv, err := u.deps.Conversations.GetOwned(dbc, id, userID)
		if err != nil {
			return nil, apierr.New(http.StatusInternalServerError, "load_conversation_failed", err)
		}
		if conv != nil {
			out = append(out, conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (u Usecases) writeTranscript(b *strings.Builder, conv *types.Conversation, msgs []*types.Message) {
	title := strings.TrimSpace(conv.Title)
	if title == "" {
		title = "Untitled"
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "\n--- Conversation: %s (%s) ---", title, conv.CreatedAt.In(u.deps.Location).Format(dateLayout))
	for _, m := range msgs {
		speaker := "FRED"
		if m.Role == types.RoleUser {
			speaker = "User"
		}
		fmt.Fprintf(b, "\n%s: %s", speaker, m.Content)
	}
}

func parseSummary(text string) (*Summary, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var out Summary
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, false
	}
	return &out, true
}

// normalize makes every list render as [] rather than null.
func (s *Summary) normalize() {
	if s.KeyThemes == nil {
		s.KeyThemes = []string{}
	}
	if s.CopingStrategies == nil {
		s.CopingStrategies = []CopingStrategy{}
	}
	if s.RiskFactors == nil {
		s.RiskFactors = []string{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
}
