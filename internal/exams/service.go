package exams

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/examforge/examforge/internal/accounts"
	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/shared"
)

// ErrUnknownExamType indicates the exam type is outside the tool set.
var ErrUnknownExamType = errors.New("exams: unknown exam type")

// RepositoryPort defines data access for exam results.
type RepositoryPort interface {
	Save(ctx context.Context, result Result) error
	Get(ctx context.Context, id string) (*Result, error)
	ListByAccount(ctx context.Context, accountID string) ([]Result, error)
	ListAll(ctx context.Context) ([]Result, error)
	Delete(ctx context.Context, id string) error
}

// Service handles exam result business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Save persists a new exam attempt for the owning account and returns its ID.
func (s *Service) Save(ctx context.Context, result Result) (string, error) {
	valid := false
	for _, tool := range permissions.KnownTools() {
		if result.ExamType == tool {
			valid = true
			break
		}
	}
	if !valid {
		return "", ErrUnknownExamType
	}
	result.ID = uuid.NewString()
	if result.ExamDate.IsZero() {
		result.ExamDate = time.Now().UTC()
	}
	if result.Answers == nil {
		result.Answers = map[int]string{}
	}
	if result.QuestionTimes == nil {
		result.QuestionTimes = map[int]int{}
	}
	if err := s.repo.Save(ctx, result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// Get fetches a single result, restricted to the owner or an admin.
func (s *Service) Get(ctx context.Context, caller *accounts.Account, id string) (*Result, error) {
	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && result.AccountID != caller.ID {
		return nil, shared.ErrForbidden
	}
	return result, nil
}

// ListByAccount returns an account's results ordered by exam date descending.
func (s *Service) ListByAccount(ctx context.Context, accountID string) ([]Result, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// ListAll returns every result ordered by exam date descending.
func (s *Service) ListAll(ctx context.Context) ([]Result, error) {
	return s.repo.ListAll(ctx)
}

// Delete removes a result. Only the owning account or an admin may delete.
func (s *Service) Delete(ctx context.Context, caller *accounts.Account, id string) error {
	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && result.AccountID != caller.ID {
		return shared.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
