package catalog

import (
	"errors"

	"trivia-live-backend/internal/game"
	"trivia-live-backend/internal/models"

	"gorm.io/gorm"
)

const defaultTimeLimit = 20

// Service is the question catalog: an ordered sequence of questions the game
// controller snapshots at the start of a session. Editing goes through
// ReplaceAll, which the HTTP layer pairs with a forced session reset so a
// running game never sees the catalog change under it.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Snapshot loads the catalog in play order. It satisfies game.CatalogProvider.
func (s *Service) Snapshot() ([]game.Question, error) {
	var rows []models.Question
	err := s.db.Order("order_num ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	questions := make([]game.Question, 0, len(rows))
	for _, row := range rows {
		q := game.Question{
			Text:      row.Text,
			TimeLimit: row.TimeLimit,
			Media:     row.Media,
			Correct:   row.CorrectIndex,
		}
		if q.TimeLimit <= 0 {
			q.TimeLimit = defaultTimeLimit
		}
		for _, o := range row.Options {
			q.Options = append(q.Options, game.Option{Text: o.Text})
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// QuestionInput is one question in a full-replace save.
type QuestionInput struct {
	Text         string   `json:"text" binding:"required"`
	TimeLimit    int      `json:"time_limit"`
	Media        string   `json:"media"`
	Options      []string `json:"options" binding:"required,min=2,max=4"`
	CorrectIndex int      `json:"correct_index"`
}

// ReplaceAll swaps the entire catalog in one transaction.
func (s *Service) ReplaceAll(inputs []QuestionInput) error {
	for _, in := range inputs {
		if in.CorrectIndex < 0 || in.CorrectIndex >= len(in.Options) {
			return errors.New("correct_index out of range")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Option{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Question{}).Error; err != nil {
			return err
		}

		for i, in := range inputs {
			timeLimit := in.TimeLimit
			if timeLimit <= 0 {
				timeLimit = defaultTimeLimit
			}
			q := models.Question{
				Text:         in.Text,
				TimeLimit:    timeLimit,
				Media:        in.Media,
				CorrectIndex: in.CorrectIndex,
				OrderNum:     i,
			}
			for j, text := range in.Options {
				q.Options = append(q.Options, models.Option{Text: text, OrderNum: j})
			}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the stored catalog for the editor UI.
func (s *Service) List() ([]models.Question, error) {
	var rows []models.Question
	err := s.db.Order("order_num ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Find(&rows).Error
	return rows, err
}
