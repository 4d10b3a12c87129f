package model

import (
	"testing"
	"time"
)

func TestValidPinKind(t *testing.T) {
	valid := []PinKind{PinKindImage, PinKindVideo, PinKindAudio, PinKindText, PinKindLink}
	for _, k := range valid {
		if !ValidPinKind(k) {
			t.Errorf("ValidPinKind(%q): хотели true, получили false", k)
		}
	}
	invalid := []PinKind{"", "gif", "TEXT", "document"}
	for _, k := range invalid {
		if ValidPinKind(k) {
			t.Errorf("ValidPinKind(%q): хотели false, получили true", k)
		}
	}
}

func TestCanTransitionPinStatus(t *testing.T) {
	tests := []struct {
		from, to PinStatus
		want     bool
	}{
		{PinStatusActive, PinStatusUnpinned, true},
		{PinStatusActive, PinStatusArchived, true},
		{PinStatusUnpinned, PinStatusArchived, true},
		// Возврат в ленту запрещён — жизненный цикл однонаправленный
		{PinStatusUnpinned, PinStatusActive, false},
		{PinStatusArchived, PinStatusActive, false},
		{PinStatusArchived, PinStatusUnpinned, false},
		// Переход в себя — no-op, допустим
		{PinStatusActive, PinStatusActive, true},
		{PinStatusArchived, PinStatusArchived, true},
	}

	for _, tc := range tests {
		got := CanTransitionPinStatus(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransitionPinStatus(%q, %q): хотели %v, получили %v",
				tc.from, tc.to, tc.want, got)
		}
	}
}

func TestPinExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := &Pin{ExpiresAt: now.Add(time.Hour)}
	if p.Expired(now) {
		t.Error("пин с expires_at в будущем не должен считаться истёкшим")
	}

	p.ExpiresAt = now.Add(-time.Second)
	if !p.Expired(now) {
		t.Error("пин с expires_at в прошлом должен считаться истёкшим")
	}

	// Граница: expires_at == now считается истёкшим (expires_at <= now)
	p.ExpiresAt = now
	if !p.Expired(now) {
		t.Error("пин с expires_at == now должен считаться истёкшим")
	}
}

func TestSubmissionStatusTerminal(t *testing.T) {
	if SubmissionPending.Terminal() {
		t.Error("pending не должен быть терминальным")
	}
	for _, s := range []SubmissionStatus{SubmissionApproved, SubmissionRejected, SubmissionArchived} {
		if !s.Terminal() {
			t.Errorf("статус %q должен быть терминальным", s)
		}
	}
}

func TestCanArchiveSubmission(t *testing.T) {
	if !CanArchiveSubmission(SubmissionPending) {
		t.Error("архивирование из pending должно быть разрешено")
	}
	if !CanArchiveSubmission(SubmissionRejected) {
		t.Error("архивирование из rejected должно быть разрешено")
	}
	if CanArchiveSubmission(SubmissionApproved) {
		t.Error("архивирование из approved должно быть запрещено")
	}
	if CanArchiveSubmission(SubmissionArchived) {
		t.Error("повторное архивирование должно быть запрещено")
	}
}

func TestPinKindForSubmission(t *testing.T) {
	if got := PinKindForSubmission(SubmissionVoice); got != PinKindAudio {
		t.Errorf("voice: хотели %q, получили %q", PinKindAudio, got)
	}
	if got := PinKindForSubmission(SubmissionArticle); got != PinKindText {
		t.Errorf("article: хотели %q, получили %q", PinKindText, got)
	}
}

func TestSubmissionPinContent(t *testing.T) {
	audio := "https://storage.example.com/audio/note.ogg"
	voice := &Submission{Kind: SubmissionVoice, AudioURL: &audio}
	if got := voice.PinContent(); got != audio {
		t.Errorf("voice: хотели %q, получили %q", audio, got)
	}

	article := &Submission{Kind: SubmissionArticle, Content: "текст статьи"}
	if got := article.PinContent(); got != "текст статьи" {
		t.Errorf("article: хотели %q, получили %q", "текст статьи", got)
	}
}
