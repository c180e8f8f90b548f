package models

type Question struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Text         string   `gorm:"type:text;not null" json:"text"`
	TimeLimit    int      `gorm:"not null;default:20" json:"time_limit"`
	Media        string   `gorm:"size:500;default:''" json:"media,omitempty"`
	CorrectIndex int      `gorm:"not null;default:0" json:"correct_index"`
	OrderNum     int      `gorm:"not null" json:"order_num"`
	Options      []Option `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}
