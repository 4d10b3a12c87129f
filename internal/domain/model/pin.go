// Пакет model — доменные типы Pinwall: пины, взаимодействия студентов
// и заявки на публикацию.
package model

import "time"

// PinKind — тип контента пина.
type PinKind string

const (
	PinKindImage PinKind = "image"
	PinKindVideo PinKind = "video"
	PinKindAudio PinKind = "audio"
	PinKindText  PinKind = "text"
	PinKindLink  PinKind = "link"
)

// ValidPinKind проверяет, что тип контента входит в фиксированное множество.
func ValidPinKind(k PinKind) bool {
	switch k {
	case PinKindImage, PinKindVideo, PinKindAudio, PinKindText, PinKindLink:
		return true
	}
	return false
}

// PinStatus — статус пина в ленте.
type PinStatus string

const (
	// PinStatusActive — пин виден в ленте.
	PinStatusActive PinStatus = "active"
	// PinStatusUnpinned — пин снят с ленты (истечение срока или FIFO-вытеснение).
	PinStatusUnpinned PinStatus = "unpinned"
	// PinStatusArchived — пин в архиве.
	PinStatusArchived PinStatus = "archived"
)

// ValidPinStatus проверяет допустимость статуса пина.
func ValidPinStatus(s PinStatus) bool {
	switch s {
	case PinStatusActive, PinStatusUnpinned, PinStatusArchived:
		return true
	}
	return false
}

// pinStatusTransitions — матрица допустимых переходов статуса пина.
// Жизненный цикл однонаправленный: active → unpinned | archived,
// unpinned → archived. Возврат в active запрещён.
var pinStatusTransitions = map[PinStatus]map[PinStatus]bool{
	PinStatusActive:   {PinStatusUnpinned: true, PinStatusArchived: true},
	PinStatusUnpinned: {PinStatusArchived: true},
	PinStatusArchived: {},
}

// CanTransitionPinStatus проверяет, соответствует ли переход
// однонаправленному жизненному циклу пина. Хранилище переход не
// блокирует — инвариант обязаны соблюдать вызывающие.
func CanTransitionPinStatus(from, to PinStatus) bool {
	if from == to {
		return true
	}
	return pinStatusTransitions[from][to]
}

// DefaultLocale — локаль по умолчанию для пинов и заявок.
const DefaultLocale = "english"

// Pin — единица закреплённого контента в курируемой ленте.
// Хранится в таблице pins.
type Pin struct {
	// ID — UUID записи
	ID string `json:"id"`
	// Title — заголовок пина
	Title string `json:"title"`
	// Content — тело или ссылка на медиа (URL/ключ объектного хранилища)
	Content string `json:"content"`
	// Kind — тип контента (image, video, audio, text, link)
	Kind PinKind `json:"kind"`
	// AuthorID — UUID автора
	AuthorID string `json:"author_id"`
	// Official — официальный пин (опубликован персоналом)
	Official bool `json:"official"`
	// Locale — локаль контента
	Locale string `json:"locale"`
	// Tags — произвольный набор тегов
	Tags []string `json:"tags"`
	// Status — статус в ленте (active, unpinned, archived)
	Status PinStatus `json:"status"`
	// Likes — счётчик уникальных лайков
	Likes int64 `json:"likes"`
	// Seen — счётчик уникальных просмотревших
	Seen int64 `json:"seen"`
	// Shares — счётчик репостов
	Shares int64 `json:"shares"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time `json:"updated_at"`
	// ExpiresAt — время истечения (по умолчанию created_at + 7 суток)
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired сообщает, истёк ли срок пина на момент now.
func (p *Pin) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// EngagementCounter — имя счётчика вовлечённости на записи пина.
type EngagementCounter string

const (
	CounterLikes  EngagementCounter = "likes"
	CounterSeen   EngagementCounter = "seen"
	CounterShares EngagementCounter = "shares"
)
