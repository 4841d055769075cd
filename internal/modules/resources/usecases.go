package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

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
	DefaultMatchMaxTokens = 300

	// MaxMatches caps the list returned to the client.
	MaxMatches = 5

	// Fewer matches than minMatches are topped up with crisis lines.
	minMatches       = 2
	maxCrisisTopUp   = 3
	contextMessages  = 10
	contextRunes     = 1500
	descriptionRunes = 100

	DefaultHandoffMessage  = "Based on our conversation, these resources might be helpful for you."
	FallbackHandoffMessage = "Here are some key support services that may be helpful for you."
)

type PlainSender interface {
	SendPlain(ctx context.Context, prompt string, opts gateway.Options) (*gateway.Result, error)
}

type UsecasesDeps struct {
	Log           *logger.Logger
	Resources     repos.ResourceRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Model         PlainSender
	// MaxTokens defaults to DefaultMatchMaxTokens.
	MaxTokens int64
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
		deps.MaxTokens = DefaultMatchMaxTokens
	}
	return Usecases{deps: deps, log: deps.Log.With("service", "ResourceMatcher")}
}

type ListQuery struct {
	Type   string
	Region string
	Tag    string
}

func (u Usecases) List(ctx context.Context, q ListQuery) ([]*types.Resource, error) {
	rows, err := u.deps.Resources.ListActive(dbctx.Context{Ctx: ctx}, repos.ResourceFilter{Type: q.Type, Region: q.Region, Tag: q.Tag})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_resources_failed", err)
	}
	if rows == nil {
		rows = []*types.Resource{}
	}
	return rows, nil
}

// SeedDefaults upserts the built-in catalog by name.
func (u Usecases) SeedDefaults(ctx context.Context) (int, error) {
	rows := DefaultCatalog()
	if err := u.deps.Resources.UpsertByName(dbctx.Context{Ctx: ctx}, rows); err != nil {
		return 0, fmt.Errorf("seed resources: %w", err)
	}
	u.log.Info("resource catalog seeded", "count", len(rows))
	return len(rows), nil
}

type MatchInput struct {
	ConversationID string `json:"conversationId"`
	MessageContext string `json:"messageContext"`
}

type MatchResult struct {
	Resources      []*types.Resource `json:"resources"`
	HandoffMessage string            `json:"handoffMessage"`
}

// Match asks the model to pick services for the conversation. An explicit MessageContext wins over
// the stored history; the conversation must belong to userID.
func (u Usecases) Match(ctx context.Context, userID uuid.UUID, in MatchInput) (_ *MatchResult, err error) {
	ctx, span := observability.Tracer().Start(ctx, "resources.match")
	defer span.End()

	result := "error"
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		observability.ResourceMatches.WithLabelValues(result).Inc()
	}()

	dbc := dbctx.Context{Ctx: ctx}
	text := strings.TrimSpace(in.MessageContext)
	if text == "" && strings.TrimSpace(in.ConversationID) != "" {
		text, err = u.recentHistory(dbc, userID, in.ConversationID)
		if err != nil {
			return nil, err
		}
	}
	if text == "" {
		return nil, apierr.Public(http.StatusBadRequest, "missing_context", "Please provide conversation context", nil)
	}

	active, err := u.deps.Resources.ListActive(dbc, repos.ResourceFilter{})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_resources_failed", err)
	}
	span.SetAttributes(attribute.Int("resources.active", len(active)))
	if len(active) == 0 {
		result = "empty"
		return &MatchResult{Resources: []*types.Resource{}, HandoffMessage: DefaultHandoffMessage}, nil
	}

	catalog := make([]string, 0, len(active))
	for _, r := range active {
		catalog = append(catalog, catalogLine(r))
	}
	res, err := u.deps.Model.SendPlain(ctx, gateway.ResourceMatchPrompt(truncateRunes(text, contextRunes), catalog), gateway.Options{
		MaxTokens:   u.deps.MaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, gateway.Unavailable(err)
	}

	picked, ok := parseMatch(res.Text)
	if !ok {
		u.log.Warn("resource match reply was not valid JSON", "reply_chars", len(res.Text))
		result = "fallback"
		return &MatchResult{Resources: crisisLines(active, nil, MaxMatches), HandoffMessage: FallbackHandoffMessage}, nil
	}

	result = "matched"
	matched := selectByID(active, picked.ResourceIDs)
	if len(matched) < minMatches {
		result = "topped_up"
		matched = append(matched, crisisLines(active, matched, maxCrisisTopUp)...)
	}
	if len(matched) > MaxMatches {
		matched = matched[:MaxMatches]
	}
	msg := strings.TrimSpace(picked.HandoffMessage)
	if msg == "" {
		msg = DefaultHandoffMessage
	}
	span.SetAttributes(attribute.Int("resources.matched", len(matched)))
	return &MatchResult{Resources: matched, HandoffMessage: msg}, nil
}

func (u Usecases) recentHistory(dbc dbctx.Context, userID uuid.UUID, rawID string) (string, error) {
	notFound := func(err error) error {
		return apierr.Public(http.StatusNotFound, "conversation_not_found", "Conversation not found", err)
	}
	convID, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return "", notFound(err)
	}
	conv, err := u.deps.Conversations.GetOwned(dbc, convID, userID)
	if err != nil {
		return "", apierr.New(http.StatusInternalServerError, "load_conversation_failed", err)
	}
	if conv == nil {
		return "", notFound(nil)
	}
	msgs, err := u.deps.Messages.ListByConversation(dbc, conv.ID)
	if err != nil {
		return "", apierr.New(http.StatusInternalServerError, "load_messages_failed", err)
	}
	if len(msgs) > contextMessages {
		msgs = msgs[len(msgs)-contextMessages:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n"), nil
}

// catalogLine renders "[id] name (type, region) - Tags: a, b - description".
func catalogLine(r *types.Resource) string {
	return fmt.Sprintf("[%s] %s (%s, %s) - Tags: %s - %s",
		r.ID, r.Name, r.Type, r.Region, strings.Join(r.TagList(), ", "), truncateRunes(r.Description, descriptionRunes))
}

type matchReply struct {
	ResourceIDs    []string `json:"resourceIds"`
	HandoffMessage string   `json:"handoffMessage"`
}

// parseMatch tolerates a fenced block or prose around the object.
func parseMatch(text string) (matchReply, bool) {
	var out matchReply
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return out, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return matchReply{}, false
	}
	return out, true
}

// selectByID keeps catalog order, so priority wins over the order the model listed ids in.
func selectByID(active []*types.Resource, ids []string) []*types.Resource {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.ToLower(strings.TrimSpace(id))] = true
	}
	out := make([]*types.Resource, 0, len(ids))
	for _, r := range active {
		if want[r.ID.String()] {
			out = append(out, r)
		}
	}
	return out
}

func crisisLines(active, exclude []*types.Resource, limit int) []*types.Resource {
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, r := range exclude {
		skip[r.ID] = true
	}
	out := make([]*types.Resource, 0, limit)
	for _, r := range active {
		if len(out) == limit {
			break
		}
		if !skip[r.ID] && r.HasTag(types.ResourceTagCrisis) {
			out = append(out, r)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
