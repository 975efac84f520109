package model

import "time"

// DiveSite はダイブサイト（ポイント）を表す。閲覧用の静的データ。
type DiveSite struct {
	ID          int64
	Name        string
	Location    string
	Latitude    float64
	Longitude   float64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DiveSiteDetail はサイト詳細（レビューと平均評価付き）を表す。
type DiveSiteDetail struct {
	DiveSite
	Reviews       []*ReviewRecord
	AverageRating float64
	ReviewCount   int
}

// DiveClub はダイブクラブ（ショップ）を表す。閲覧用の静的データ。
type DiveClub struct {
	ID           int64
	Name         string
	Location     string
	Description  string
	ContactEmail string
	ContactPhone string
	Website      string
	ImageURL     string
	Rating       *float64
	CreatedAt    time.Time
}
