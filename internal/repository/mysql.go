package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/model"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS article_archive (
		id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		title VARCHAR(512) NOT NULL,
		link VARCHAR(2048) NOT NULL,
		poster VARCHAR(128) NOT NULL,
		posted_at DATETIME NOT NULL,
		votes BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS vote_logs (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		article_id BIGINT UNSIGNED NOT NULL,
		username VARCHAR(128) NOT NULL,
		voted_at DATETIME NOT NULL,
		KEY idx_article (article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS article_groups (
		article_id BIGINT UNSIGNED NOT NULL,
		group_name VARCHAR(128) NOT NULL,
		PRIMARY KEY (article_id, group_name)
	)`,
}

// MySQLRepository 文章归档，主库写入，从库读取
type MySQLRepository struct {
	masterDB *sql.DB
	slaveDB  *sql.DB
}

func NewMySQLRepository(cfg config.MySQLConfig) (*MySQLRepository, error) {
	masterDB, err := sql.Open("mysql", cfg.Master)
	if err != nil {
		return nil, fmt.Errorf("连接主数据库失败: %w", err)
	}

	masterDB.SetMaxOpenConns(cfg.MaxOpenConns)
	masterDB.SetMaxIdleConns(cfg.MaxIdleConns)
	masterDB.SetConnMaxLifetime(time.Hour)

	if err = masterDB.Ping(); err != nil {
		masterDB.Close()
		return nil, fmt.Errorf("主数据库连接测试失败: %w", err)
	}

	slaveDB := masterDB
	if cfg.Slave != "" {
		slaveDB, err = sql.Open("mysql", cfg.Slave)
		if err != nil {
			masterDB.Close()
			return nil, fmt.Errorf("连接从数据库失败: %w", err)
		}

		slaveDB.SetMaxOpenConns(cfg.MaxOpenConns)
		slaveDB.SetMaxIdleConns(cfg.MaxIdleConns)
		slaveDB.SetConnMaxLifetime(time.Hour)

		if err = slaveDB.Ping(); err != nil {
			slog.Warn("从数据库连接测试失败，将使用主数据库代替", "error", err)
			slaveDB.Close()
			slaveDB = masterDB
		}
	}

	return NewMySQLRepositoryWithDB(masterDB, slaveDB), nil
}

func NewMySQLRepositoryWithDB(masterDB, slaveDB *sql.DB) *MySQLRepository {
	if slaveDB == nil {
		slaveDB = masterDB
	}
	return &MySQLRepository{
		masterDB: masterDB,
		slaveDB:  slaveDB,
	}
}

// EnsureSchema 创建归档表
func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.masterDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("创建归档表失败: %w", err)
		}
	}
	return nil
}

// SaveArticle 归档文章，重复写入以最新内容为准
func (r *MySQLRepository) SaveArticle(ctx context.Context, article *model.Article) error {
	query := `INSERT INTO article_archive (id, title, link, poster, posted_at, votes)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON DUPLICATE KEY UPDATE
			 title = VALUES(title),
			 link = VALUES(link),
			 poster = VALUES(poster)`

	_, err := r.masterDB.ExecContext(ctx, query,
		article.ID,
		article.Title,
		article.Link,
		article.Author,
		time.Unix(article.CreatedAt, 0).UTC(),
		article.Votes,
	)
	if err != nil {
		return fmt.Errorf("保存文章 %d 到MySQL失败: %w", article.ID, err)
	}
	return nil
}

// RecordVote 增加归档票数并记录投票日志
func (r *MySQLRepository) RecordVote(ctx context.Context, articleID uint64, user string, votedAt time.Time) error {
	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	result, err := tx.ExecContext(ctx, "UPDATE article_archive SET votes = votes + 1 WHERE id = ?", articleID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("更新文章 %d 票数失败: %w", articleID, err)
	}

	// 检查是否找到文章
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("获取更新结果失败: %w", err)
	}
	if rowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("归档文章 %d: %w", articleID, model.ErrArticleNotFound)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO vote_logs (article_id, username, voted_at) VALUES (?, ?, ?)",
		articleID, user, votedAt.UTC())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("记录用户 %s 投票日志失败: %w", user, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// RecordGroups 归档文章所属群组
func (r *MySQLRepository) RecordGroups(ctx context.Context, articleID uint64, groups []string) error {
	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT IGNORE INTO article_groups (article_id, group_name) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("准备群组语句失败: %w", err)
	}
	defer stmt.Close()

	for _, group := range groups {
		if _, err := stmt.ExecContext(ctx, articleID, group); err != nil {
			tx.Rollback()
			return fmt.Errorf("记录文章 %d 群组 %s 失败: %w", articleID, group, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetArchivedArticle 从从库读取归档文章
func (r *MySQLRepository) GetArchivedArticle(ctx context.Context, articleID uint64) (*model.Article, error) {
	query := "SELECT id, title, link, poster, posted_at, votes FROM article_archive WHERE id = ?"

	var article model.Article
	var postedAt time.Time
	err := r.slaveDB.QueryRowContext(ctx, query, articleID).Scan(
		&article.ID,
		&article.Title,
		&article.Link,
		&article.Author,
		&postedAt,
		&article.Votes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("归档文章 %d: %w", articleID, model.ErrArticleNotFound)
		}
		return nil, fmt.Errorf("查询归档文章失败: %w", err)
	}
	article.CreatedAt = postedAt.Unix()
	return &article, nil
}

// Close 关闭数据库连接
func (r *MySQLRepository) Close() {
	if r.masterDB != nil {
		r.masterDB.Close()
	}
	if r.slaveDB != nil && r.slaveDB != r.masterDB {
		r.slaveDB.Close()
	}
}
