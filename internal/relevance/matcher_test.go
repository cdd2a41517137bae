package relevance

import (
	"testing"

	"prensa/internal/models"
)

func TestMatcher_MatchText(t *testing.T) {
	m := NewMatcher([]string{"mercado libre", "tiktok"})

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain keyword", "Nueva sede de TikTok en la región", true},
		{"case insensitive", "TIKTOK anuncia cambios", true},
		{"space variant", "Mercado Libre crece", true},
		{"hyphen variant", "mercado-libre presenta resultados", true},
		{"joined variant", "MercadoLibre cotiza en alza", true},
		{"accented", "Mercádo Líbre informó", true},
		{"unicode hyphen", "tik–tok en debate", true},
		{"no match", "noticias de economía general", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.MatchText(tt.text); got != tt.want {
				t.Errorf("MatchText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatcher_EmptyMatchesEverything(t *testing.T) {
	m := NewMatcher(nil)

	if !m.MatchText("anything at all") {
		t.Error("keyword-less matcher must match everything")
	}
}

func TestIsReply(t *testing.T) {
	if !IsReply("@alguien gracias por compartir") {
		t.Error("text starting with a mention marker is a reply")
	}

	if !IsReply("  @padded reply") {
		t.Error("leading whitespace must not hide the marker")
	}

	if IsReply("Hablando de @alguien hoy") {
		t.Error("mid-text mentions are not replies")
	}
}

func TestPrefilter(t *testing.T) {
	m := NewMatcher([]string{"irsa"})

	batch := []models.Article{
		{Title: "IRSA presenta balance", Link: "https://a.com/1"},
		{Title: "Clima para el fin de semana", Link: "https://a.com/2"},
		{Snippet: "Un proyecto de Irsa avanza", Link: "https://a.com/3"},
	}

	kept := m.Prefilter(batch)

	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}

	if kept[0].Link != "https://a.com/1" || kept[1].Link != "https://a.com/3" {
		t.Errorf("wrong rows kept: %v", kept)
	}
}

func TestPrefilter_EmptyResultPassesBatchThrough(t *testing.T) {
	m := NewMatcher([]string{"irsa"})

	batch := []models.Article{
		{Title: "Sin mención", Link: "https://a.com/1"},
	}

	if kept := m.Prefilter(batch); len(kept) != 1 {
		t.Errorf("empty prefilter result must pass the batch through, kept %d", len(kept))
	}
}

func TestDropReplies(t *testing.T) {
	batch := []models.Tweet{
		{Text: "@user si, coincido", Link: "https://x.com/1"},
		{Text: "Anuncio importante", Link: "https://x.com/2"},
	}

	kept := DropReplies(batch)

	if len(kept) != 1 || kept[0].Link != "https://x.com/2" {
		t.Errorf("DropReplies = %v", kept)
	}
}
