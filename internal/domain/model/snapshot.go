package model

import "time"

// SnapshotScope — горизонт аналитического среза.
type SnapshotScope string

const (
	// SnapshotDaily — ежедневный срез (окно 1 сутки).
	SnapshotDaily SnapshotScope = "daily"
	// SnapshotWeekly — еженедельный срез (окно 7 суток).
	SnapshotWeekly SnapshotScope = "weekly"
)

// AnalyticsSnapshot — сохранённый аналитический срез.
// Таблица analytics_snapshots append-only: срезы никогда не
// изменяются и не удаляются, служат только для дашбордов.
type AnalyticsSnapshot struct {
	// ID — UUID записи
	ID string `json:"id"`
	// Scope — горизонт среза (daily, weekly)
	Scope SnapshotScope `json:"scope"`
	// CapturedAt — момент снятия среза
	CapturedAt time.Time `json:"captured_at"`
	// Payload — произвольные агрегаты среза
	Payload map[string]any `json:"payload"`
}

// TopPin — пин в рейтинге вовлечённости за окно наблюдения.
type TopPin struct {
	// PinID — UUID пина
	PinID string `json:"pin_id"`
	// Title — заголовок пина
	Title string `json:"title"`
	// Kind — тип контента
	Kind PinKind `json:"kind"`
	// WindowLikes — лайки внутри окна наблюдения
	WindowLikes int64 `json:"window_likes"`
	// WindowSeen — просмотры внутри окна наблюдения
	WindowSeen int64 `json:"window_seen"`
	// Score — суммарная вовлечённость внутри окна
	Score int64 `json:"score"`
}
