package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankriot/rankriot/internal/models"
)

func TestUpsertLinksBatchesInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	store := &LinkStore{db: db}

	now := time.Now()
	links := []*models.PageLink{
		{
			ID: "link_1", ProjectID: "proj_1", SourcePageID: "page_1",
			DestinationURL: "https://example.com/a", LinkType: models.LinkTypeInternal,
			IsFollowed: true, CreatedAt: now,
		},
		{
			ID: "link_2", ProjectID: "proj_1", SourcePageID: "page_1",
			DestinationURL: "https://other.com/b", LinkType: models.LinkTypeExternal,
			IsFollowed: false, CreatedAt: now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectPrepare(`(?s)INSERT INTO page_links.+ON CONFLICT \(source_page_id, destination_url\) DO UPDATE SET`)
	mock.ExpectExec(`(?s)INSERT INTO page_links`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO page_links`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.UpsertLinks(context.Background(), links))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLinksEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &LinkStore{db: db}

	require.NoError(t, store.UpsertLinks(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
