package model

import "time"

// InteractionKind — вид взаимодействия студента с пином.
type InteractionKind string

const (
	// InteractionLike — лайк. Удаляется при снятии лайка, может быть создан заново.
	InteractionLike InteractionKind = "like"
	// InteractionSeen — просмотр. Никогда не удаляется, обновляется
	// только длительность (high-watermark).
	InteractionSeen InteractionKind = "seen"
)

// ValidInteractionKind проверяет допустимость вида взаимодействия.
func ValidInteractionKind(k InteractionKind) bool {
	return k == InteractionLike || k == InteractionSeen
}

// LikeSubtype — подтип лайка.
type LikeSubtype string

const (
	LikeThumbsUp LikeSubtype = "thumbs_up"
	LikeHeart    LikeSubtype = "heart"
	LikeClap     LikeSubtype = "clap"
	LikeStar     LikeSubtype = "star"
)

// DefaultLikeSubtype — подтип лайка по умолчанию.
const DefaultLikeSubtype = LikeThumbsUp

// ValidLikeSubtype проверяет допустимость подтипа лайка.
func ValidLikeSubtype(s LikeSubtype) bool {
	switch s {
	case LikeThumbsUp, LikeHeart, LikeClap, LikeStar:
		return true
	}
	return false
}

// Interaction — взаимодействие студента с пином.
// Хранится в таблице interactions. Ключ дедупликации
// (student_id, pin_id, kind) обеспечивается UNIQUE-ограничением.
type Interaction struct {
	// ID — UUID записи
	ID string `json:"id"`
	// StudentID — UUID студента
	StudentID string `json:"student_id"`
	// PinID — UUID пина
	PinID string `json:"pin_id"`
	// Kind — вид взаимодействия (like, seen)
	Kind InteractionKind `json:"kind"`
	// LikeSubtype — подтип лайка; заполнен только при kind = like
	LikeSubtype LikeSubtype `json:"like_subtype,omitempty"`
	// ViewDuration — максимальная наблюдавшаяся длительность просмотра
	// в секундах; заполняется только при kind = seen, не убывает
	ViewDuration int64 `json:"view_duration"`
	// CreatedAt — время первого взаимодействия
	CreatedAt time.Time `json:"created_at"`
}

// InteractionCounts — количество взаимодействий пина по видам.
type InteractionCounts struct {
	Likes int64 `json:"likes"`
	Seen  int64 `json:"seen"`
}
