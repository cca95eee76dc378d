package review

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrEmptyComment  = errors.New("comment content is required")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

type Comment struct {
	ID        string    `json:"id,omitempty"`
	ProductID int64     `json:"productId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (c Comment) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyComment
	}
	return nil
}

type Rating struct {
	ID        string    `json:"id,omitempty"`
	ProductID int64     `json:"productId"`
	UserID    string    `json:"userId"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func (r Rating) Validate() error {
	if r.Value < MinRating || r.Value > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// Average returns the mean rating rounded to two decimals, or zero without ratings
func Average(ratings []Rating) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, r := range ratings {
		sum = sum.Add(decimal.NewFromInt(int64(r.Value)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(2)
}
