package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"marina/internal/audit"
	"marina/internal/entity"
	"marina/internal/listing"
	"marina/internal/platform/logger"
)

type UserServiceSuite struct {
	suite.Suite
	store   *entity.Memory
	sink    *audit.MemorySink
	service *Service
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.store = entity.NewMemory()
	s.sink = audit.NewMemorySink()
	s.service = New(s.store, listing.New(s.store),
		WithLogger(logger.Discard()),
		WithAuditPublisher(audit.NewPublisher(s.sink)),
	)
}

func (s *UserServiceSuite) TestFindOrCreateCreatesOnce() {
	ctx := context.Background()

	first, created, err := s.service.FindOrCreate(ctx, "sub-1", "Ada", "Lovelace")
	s.Require().NoError(err)
	s.True(created)
	s.Equal("Ada", first.FirstName)
	s.NotEmpty(first.ID)

	again, created, err := s.service.FindOrCreate(ctx, "sub-1", "Changed", "Name")
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, again.ID)
	s.Equal("Ada", again.FirstName, "existing users are never mutated")

	s.Equal([]audit.Action{audit.ActionUserCreated}, s.sink.Actions())
}

func (s *UserServiceSuite) TestFindOrCreateRequiresSubject() {
	_, _, err := s.service.FindOrCreate(context.Background(), "", "a", "b")
	s.Error(err)
}

func (s *UserServiceSuite) TestListPaginates() {
	ctx := context.Background()
	for i := range 7 {
		_, _, err := s.service.FindOrCreate(ctx, fmt.Sprintf("sub-%d", i), "F", "L")
		s.Require().NoError(err)
	}

	page, err := s.service.List(ctx, "")
	s.Require().NoError(err)
	s.Len(page.Users, listing.PageSize)
	s.Equal(7, page.Total)
	s.NotEmpty(page.Next)

	rest, err := s.service.List(ctx, page.Next)
	s.Require().NoError(err)
	s.Len(rest.Users, 2)
	s.Empty(rest.Next)
}
