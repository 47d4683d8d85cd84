// Package sqlstore is the PostgreSQL implementation of the game store, built on gorm.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"exemplarparty/internal/model"
)

type Store struct {
	db *gorm.DB
}

// Open connects with a bounded number of retries and migrates the schema.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	const maxRetries = 3
	const retryInterval = 5 * time.Second

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i <= maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		logger.Warn("postgres connect retry", zap.Int("retry", i), zap.Error(err))
		time.Sleep(retryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&model.Game{},
		&model.Player{},
		&model.Round{},
		&model.Submission{},
		&model.Vote{},
		&model.Category{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, game *model.Game) error {
	return s.db.WithContext(ctx).Create(game).Error
}

func (s *Store) EndGame(ctx context.Context, gameID string, status model.GameStatus, totalRounds int, endedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Game{}).
		Where("id = ?", gameID).
		Updates(map[string]interface{}{
			"status":       status,
			"total_rounds": totalRounds,
			"ended_at":     endedAt,
		}).Error
}

func (s *Store) CreatePlayer(ctx context.Context, player *model.Player) error {
	return s.db.WithContext(ctx).Create(player).Error
}

// FindPlayer returns nil, nil when the player does not exist.
func (s *Store) FindPlayer(ctx context.Context, id string) (*model.Player, error) {
	var players []model.Player
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&players).Error; err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, nil
	}
	return &players[0], nil
}

func (s *Store) UpdatePlayerScore(ctx context.Context, id string, score int) error {
	return s.db.WithContext(ctx).Model(&model.Player{}).
		Where("id = ?", id).
		Update("score", score).Error
}

func (s *Store) SetPlayerConnected(ctx context.Context, id string, connected bool, at time.Time) error {
	updates := map[string]interface{}{"connected": connected, "left_at": nil}
	if !connected {
		updates["left_at"] = at
	}
	return s.db.WithContext(ctx).Model(&model.Player{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) CreateRound(ctx context.Context, round *model.Round) error {
	return s.db.WithContext(ctx).Create(round).Error
}

func (s *Store) EndRound(ctx context.Context, roundID string, endedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Round{}).
		Where("id = ?", roundID).
		Update("ended_at", endedAt).Error
}

func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *Store) ScoreSubmission(ctx context.Context, submissionID string, yes, no, points int) error {
	return s.db.WithContext(ctx).Model(&model.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{
			"yes_votes": yes,
			"no_votes":  no,
			"points":    points,
		}).Error
}

func (s *Store) CreateVote(ctx context.Context, vote *model.Vote) error {
	return s.db.WithContext(ctx).Create(vote).Error
}

func (s *Store) CreateCategory(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(category).Error
}

func (s *Store) SeedCategories(ctx context.Context, gameID string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]model.Category, 0, len(texts))
	for _, text := range texts {
		rows = append(rows, model.Category{
			ID:          uuid.NewString(),
			GameID:      gameID,
			Text:        text,
			IsPreset:    true,
			SubmittedAt: now,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// AvailableCategories lists unused entries, presets last, oldest first.
func (s *Store) AvailableCategories(ctx context.Context, gameID string) ([]model.Category, error) {
	var categories []model.Category
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND used = ?", gameID, false).
		Order("is_preset ASC").
		Order("submitted_at ASC").
		Find(&categories).Error
	return categories, err
}

// MarkCategoryUsed flips used only if it is still false. It reports whether this
// call won.
func (s *Store) MarkCategoryUsed(ctx context.Context, categoryID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ? AND used = ?", categoryID, false).
		Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

const exportQuery = `
SELECT g.code AS game_code, g.status AS game_status, r.number AS round_number,
       r.category AS category, p.nickname AS player_nickname, s.text AS exemplar,
       s.yes_votes, s.no_votes, s.points,
       COALESCE(vp.nickname, '') AS voter_nickname, v.vote AS vote
FROM submissions s
JOIN rounds r ON r.id = s.round_id
JOIN games g ON g.id = r.game_id
LEFT JOIN players p ON p.id = s.player_id
LEFT JOIN votes v ON v.submission_id = s.id
LEFT JOIN players vp ON vp.id = v.voter_id
ORDER BY g.started_at, r.number, s.submitted_at, v.cast_at`

type exportScan struct {
	GameCode       string
	GameStatus     string
	RoundNumber    int
	Category       string
	PlayerNickname *string
	Exemplar       string
	YesVotes       int
	NoVotes        int
	Points         int
	VoterNickname  string
	Vote           *bool
}

func (s *Store) ExportRows(ctx context.Context) ([]model.ExportRow, error) {
	var scanned []exportScan
	if err := s.db.WithContext(ctx).Raw(exportQuery).Scan(&scanned).Error; err != nil {
		return nil, err
	}
	rows := make([]model.ExportRow, 0, len(scanned))
	for _, r := range scanned {
		row := model.ExportRow{
			GameCode:      r.GameCode,
			GameStatus:    r.GameStatus,
			RoundNumber:   r.RoundNumber,
			Category:      r.Category,
			Exemplar:      r.Exemplar,
			YesVotes:      r.YesVotes,
			NoVotes:       r.NoVotes,
			Points:        r.Points,
			VoterNickname: r.VoterNickname,
			Vote:          r.Vote,
		}
		if r.PlayerNickname != nil {
			row.PlayerNickname = *r.PlayerNickname
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
