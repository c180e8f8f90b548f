package models

// An Option with empty text is an inactive slot: it stays in the catalog so
// indices are stable, but it is never offered to players.
type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:500;default:''" json:"text"`
	OrderNum   int    `gorm:"not null" json:"order_num"`
}
