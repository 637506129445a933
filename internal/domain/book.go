// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// Book はユーザーが所有する蔵書エンティティを表す。
type Book struct {
	ID            int64
	Title         string
	Author        string
	ISBN          string
	PublishedYear int
	UserID        int64
	CreatedAt     time.Time
}

// BookInput は蔵書登録時の入力値を表す。
type BookInput struct {
	Title         string
	Author        string
	ISBN          string
	PublishedYear int
}
