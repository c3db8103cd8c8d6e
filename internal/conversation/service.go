package conversation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/redflaghq/redflag-platform/internal/analysis"
	"gorm.io/gorm"
)

var ErrInvalidCategory = errors.New("invalid category")

type Service struct {
	repo         *Repo
	registry     *analysis.Registry
	providerName string
}

func NewService(repo *Repo, registry *analysis.Registry, providerName string) *Service {
	if providerName == "" {
		providerName = "openrouter"
	}
	return &Service{repo: repo, registry: registry, providerName: providerName}
}

func (s *Service) CreateConversation(ctx context.Context, userID uint64, title string, category string) (*Conversation, error) {
	if title == "" {
		title = "New conversation"
	}
	var cat *string
	if category != "" {
		if !ValidCategory(category) {
			return nil, ErrInvalidCategory
		}
		cat = &category
	}

	c := &Conversation{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		Category: cat,
	}
	if err := s.repo.CreateConversation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// validateOwner hides other users' conversations behind not-found.
func (s *Service) validateOwner(ctx context.Context, userID uint64, conversationID string) (*Conversation, error) {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (s *Service) GetConversation(ctx context.Context, userID uint64, id string) (*Conversation, error) {
	return s.validateOwner(ctx, userID, id)
}

func (s *Service) ListConversations(ctx context.Context, userID uint64, limit int) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, userID, limit)
}

func (s *Service) DeleteConversation(ctx context.Context, userID uint64, id string) error {
	if _, err := s.validateOwner(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.SoftDeleteConversation(ctx, id)
}

func (s *Service) AddUserMessage(ctx context.Context, userID uint64, conversationID, content string) (*Message, error) {
	if _, err := s.validateOwner(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "user",
		Content:        content,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, conversationID string, limit int) ([]Message, error) {
	if _, err := s.validateOwner(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID, limit)
}

func (s *Service) CreateJobOrGetExisting(ctx context.Context, job *AnalysisJob) (*AnalysisJob, bool, error) {
	return s.repo.CreateJobOrGetExisting(ctx, job)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*AnalysisJob, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

// RunAnalysis executes one queued job: feed the live messages to the
// provider, store the verdict as an assistant message with the structured
// payload attached, and refresh the conversation score. Returns the id of
// the stored assistant message.
func (s *Service) RunAnalysis(ctx context.Context, userID uint64, conversationID string) (string, error) {
	conv, err := s.validateOwner(ctx, userID, conversationID)
	if err != nil {
		return "", err
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return "", err
	}

	in := make([]analysis.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		in = append(in, analysis.Message{Role: m.Role, Content: m.Content})
	}

	provider, err := s.registry.Get(ctx, s.providerName)
	if err != nil {
		return "", err
	}

	category := ""
	if conv.Category != nil {
		category = *conv.Category
	}

	result, err := provider.Analyze(ctx, category, in)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	data := string(payload)

	assistant := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        result.Summary,
		RedFlagData:    &data,
	}
	if err := s.repo.InsertMessage(ctx, assistant); err != nil {
		return "", err
	}

	if err := s.repo.UpdateScore(ctx, conversationID, result.Score); err != nil {
		return "", err
	}

	return assistant.ID, nil
}
