package entity

import (
	"time"
)

// StreakWindow задает единицу окна (обычно сутки) и полную длину окна.
// Запись живет Length после последней активности; продление засчитывается,
// если с последнего продления прошла хотя бы одна единица.
type StreakWindow struct {
	Unit   time.Duration
	Length time.Duration
}

// DefaultStreakWindow - сутки как единица, двое суток до истечения
func DefaultStreakWindow() StreakWindow {
	return StreakWindow{Unit: 24 * time.Hour, Length: 48 * time.Hour}
}

// Streak - серия активных дней пользователя
type Streak struct {
	UserID       string    `json:"user_id"`
	Days         int       `json:"days"`
	StartDate    time.Time `json:"start_date"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresOn    time.Time `json:"expires_on"`
}

// NewStreak создает серию длиной в один день
func NewStreak(userID string, now time.Time, window StreakWindow) Streak {
	return Streak{
		UserID:       userID,
		Days:         1,
		StartDate:    now,
		LastActivity: now,
		ExpiresOn:    now.Add(window.Length),
	}
}

// IsExpired возвращает true, если серия логически мертва (now > ExpiresOn)
func (s *Streak) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresOn)
}

// CanExtend возвращает true, если now попадает в окно продления:
// now >= ExpiresOn - (Length - Unit)
func (s *Streak) CanExtend(now time.Time, window StreakWindow) bool {
	return !now.Before(s.ExpiresOn.Add(-(window.Length - window.Unit)))
}

// Extended возвращает серию, продленную на один день
func (s Streak) Extended(now time.Time, window StreakWindow) Streak {
	s.Days++
	s.LastActivity = now
	s.ExpiresOn = now.Add(window.Length)
	return s
}
