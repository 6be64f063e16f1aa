package storage

import (
	"testing"
	"time"

	"redbook/internal/crawler"
)

func TestDateFilterRecentDaysTemPrecedencia(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	f, err := newDateFilterAt("2020-01-01", "2020-12-31", 7, now)
	if err != nil {
		t.Fatalf("Erro criando filtro: %v", err)
	}

	dentro := now.AddDate(0, 0, -3)
	if !f.Passes(dentro) {
		t.Error("nota de 3 dias atrás devia passar com recent_days=7")
	}
	// Dentro do start/end explícito, mas fora da janela de recent_days
	fora := time.Date(2020, 6, 1, 0, 0, 0, 0, time.Local)
	if f.Passes(fora) {
		t.Error("recent_days devia ignorar start/end explícitos")
	}
}

func TestDateFilterFimDoDiaInclusivo(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	f, err := newDateFilterAt("2024-01-01", "2024-01-31", 0, now)
	if err != nil {
		t.Fatalf("Erro criando filtro: %v", err)
	}

	ultimaHora := time.Date(2024, 1, 31, 23, 30, 0, 0, time.Local)
	if !f.Passes(ultimaHora) {
		t.Error("publicação às 23:30 do último dia devia entrar na janela")
	}
	diaSeguinte := time.Date(2024, 2, 1, 0, 30, 0, 0, time.Local)
	if f.Passes(diaSeguinte) {
		t.Error("dia seguinte ao end_date não devia passar")
	}
	vespera := time.Date(2023, 12, 31, 23, 0, 0, 0, time.Local)
	if f.Passes(vespera) {
		t.Error("véspera do start_date não devia passar")
	}
}

func TestDateFilterNotaSemDataPassa(t *testing.T) {
	f, err := NewDateFilter("2024-01-01", "2024-01-31", 0)
	if err != nil {
		t.Fatalf("Erro criando filtro: %v", err)
	}
	if !f.Passes(time.Time{}) {
		t.Error("nota sem data de publicação conhecida devia passar (fail-open)")
	}
}

func TestDateFilterInativo(t *testing.T) {
	f, err := NewDateFilter("", "", 0)
	if err != nil {
		t.Fatalf("Erro criando filtro: %v", err)
	}
	if f.Active() {
		t.Error("sem restrições o filtro devia ficar inativo")
	}
	if !f.Passes(time.Date(1999, 1, 1, 0, 0, 0, 0, time.Local)) {
		t.Error("filtro inativo devia deixar tudo passar")
	}
}

func TestDateFilterDataInvalida(t *testing.T) {
	if _, err := NewDateFilter("15/06/2024", "", 0); err == nil {
		t.Error("formato de data errado devia dar erro")
	}
}

func TestPassesAttributes(t *testing.T) {
	video := crawler.NoteDetail{NoteType: crawler.NoteTypeVideo, Likes: 100}
	normal := crawler.NoteDetail{NoteType: crawler.NoteTypeNormal, Likes: 5}

	if !PassesAttributes(video, "all", 0) {
		t.Error("type=all devia aceitar qualquer tipo")
	}
	if PassesAttributes(video, "normal", 0) {
		t.Error("filtro normal devia reprovar vídeo")
	}
	if PassesAttributes(normal, "all", 10) {
		t.Error("nota com 5 curtidas devia reprovar com min_likes=10")
	}
	if !PassesAttributes(normal, "normal", 5) {
		t.Error("nota no limite exato de curtidas devia passar")
	}
}

func TestFilterAttributesPreservaOrdem(t *testing.T) {
	notes := []crawler.NoteDetail{
		{NoteID: "a", NoteType: crawler.NoteTypeNormal, Likes: 50},
		{NoteID: "b", NoteType: crawler.NoteTypeVideo, Likes: 80},
		{NoteID: "c", NoteType: crawler.NoteTypeNormal, Likes: 3},
		{NoteID: "d", NoteType: crawler.NoteTypeNormal, Likes: 20},
	}
	kept := FilterAttributes(notes, crawler.NoteTypeNormal, 10)
	if len(kept) != 2 || kept[0].NoteID != "a" || kept[1].NoteID != "d" {
		t.Errorf("esperava [a d] na ordem original, veio %+v", kept)
	}
}
