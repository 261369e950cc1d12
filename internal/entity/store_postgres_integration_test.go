//go:build integration

package entity

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"marina/pkg/platform/sentinel"
	"marina/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	storeContract
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	db, err := sql.Open("postgres", s.postgres.URL)
	s.Require().NoError(err)
	defer db.Close()
	s.Require().NoError(Migrate(context.Background(), db))
	s.Require().NoError(Migrate(context.Background(), db), "migrate is idempotent")

	s.newStore = func() Store {
		require.NoError(s.T(), s.postgres.TruncateTables(context.Background(), "entities"))
		return NewPostgres(s.postgres.Pool)
	}
}

func (s *PostgresStoreSuite) TestRejectsForeignCursor() {
	_, err := s.store.Query(context.Background(), Query{Kind: KindBoat, Cursor: "%%%", Limit: 5})
	s.ErrorIs(err, sentinel.ErrInvalidCursor)
}
