package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMySQL(t *testing.T) (*MySQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLRepositoryWithDB(db, nil), mock
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := setupMySQL(t)
	for range schemaStatements {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveArticle(t *testing.T) {
	repo, mock := setupMySQL(t)
	article := &model.Article{ID: 1, Title: "T", Link: "L", Author: "alice", CreatedAt: 1000, Votes: 1}

	mock.ExpectExec("INSERT INTO article_archive").
		WithArgs(article.ID, "T", "L", "alice", time.Unix(1000, 0).UTC(), int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveArticle(context.Background(), article))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordVote(t *testing.T) {
	repo, mock := setupMySQL(t)
	votedAt := time.Unix(2000, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE article_archive SET votes = votes + 1 WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO vote_logs").
		WithArgs(uint64(7), "bob", votedAt.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordVote(context.Background(), 7, "bob", votedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordVote_ArticleMissingRollsBack(t *testing.T) {
	repo, mock := setupMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE article_archive").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RecordVote(context.Background(), 7, "bob", time.Unix(2000, 0))
	assert.ErrorIs(t, err, model.ErrArticleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordGroups(t *testing.T) {
	repo, mock := setupMySQL(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT IGNORE INTO article_groups")
	prep.ExpectExec().WithArgs(uint64(3), "tech").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(uint64(3), "go").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordGroups(context.Background(), 3, []string{"tech", "go"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordGroups_ExecFailure(t *testing.T) {
	repo, mock := setupMySQL(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT IGNORE INTO article_groups")
	prep.ExpectExec().WithArgs(uint64(3), "tech").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.RecordGroups(context.Background(), 3, []string{"tech"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetArchivedArticle(t *testing.T) {
	repo, mock := setupMySQL(t)

	rows := sqlmock.NewRows([]string{"id", "title", "link", "poster", "posted_at", "votes"}).
		AddRow(int64(5), "T", "L", "alice", time.Unix(1000, 0), int64(3))
	mock.ExpectQuery("SELECT id, title, link, poster, posted_at, votes FROM article_archive").
		WithArgs(uint64(5)).
		WillReturnRows(rows)

	article, err := repo.GetArchivedArticle(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, &model.Article{ID: 5, Title: "T", Link: "L", Author: "alice", CreatedAt: 1000, Votes: 3}, article)

	mock.ExpectQuery("SELECT id").WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "link", "poster", "posted_at", "votes"}))
	_, err = repo.GetArchivedArticle(context.Background(), 6)
	assert.ErrorIs(t, err, model.ErrArticleNotFound)
}
