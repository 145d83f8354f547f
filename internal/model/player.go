// Package model はドメインモデルを定義する。
package model

// PlayerNameMaxLength はプレイヤー名の最大文字数（rune数）。
const PlayerNameMaxLength = 200

// Player はCRUD対象のプレイヤーリソースを表す。
// ユーザー（identity）との関連は持たない。
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,notblank,max=200"`
}
