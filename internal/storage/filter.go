package storage

import (
	"fmt"
	"log"
	"time"

	"redbook/internal/crawler"
)

const dateLayout = "2006-01-02"

// DateFilter restringe as notas a uma janela de publicação.
//
// recentDays tem precedência sobre start/end: quando > 0, a janela vira
// [agora - recentDays, agora] e as datas explícitas são ignoradas. endDate é
// estendido até 23:59:59 para o dia final entrar inteiro na janela.
type DateFilter struct {
	start  time.Time
	end    time.Time
	active bool
}

func NewDateFilter(startDate, endDate string, recentDays int) (*DateFilter, error) {
	return newDateFilterAt(startDate, endDate, recentDays, time.Now())
}

func newDateFilterAt(startDate, endDate string, recentDays int, now time.Time) (*DateFilter, error) {
	f := &DateFilter{}

	if recentDays > 0 {
		f.start = now.AddDate(0, 0, -recentDays)
		f.end = now
		f.active = true
		return f, nil
	}

	if startDate != "" {
		t, err := time.ParseInLocation(dateLayout, startDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("data inicial inválida %q: %w", startDate, err)
		}
		f.start = t
		f.active = true
	}
	if endDate != "" {
		t, err := time.ParseInLocation(dateLayout, endDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("data final inválida %q: %w", endDate, err)
		}
		f.end = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		f.active = true
	}

	return f, nil
}

// Active indica se alguma restrição de data foi configurada.
func (f *DateFilter) Active() bool {
	return f.active
}

// Passes aceita a nota quando a publicação cai dentro da janela. Notas sem
// data de publicação conhecida (zero) passam, melhor entregar uma nota fora
// da janela do que descartar por não conseguir datar.
func (f *DateFilter) Passes(publishTime time.Time) bool {
	if !f.active || publishTime.IsZero() {
		return true
	}
	if !f.start.IsZero() && publishTime.Before(f.start) {
		return false
	}
	if !f.end.IsZero() && publishTime.After(f.end) {
		return false
	}
	return true
}

// Filter aplica a janela de data sobre o lote, preservando a ordem.
func (f *DateFilter) Filter(notes []crawler.NoteDetail) []crawler.NoteDetail {
	if !f.active {
		return notes
	}
	kept := make([]crawler.NoteDetail, 0, len(notes))
	for _, n := range notes {
		if f.Passes(n.PublishTime) {
			kept = append(kept, n)
		}
	}
	if dropped := len(notes) - len(kept); dropped > 0 {
		log.Printf("[Filter] %d notas fora da janela de datas, %d mantidas.", dropped, len(kept))
	}
	return kept
}

// PassesAttributes aplica os filtros de atributo: tipo da nota e mínimo de
// curtidas. typeFilter aceita "all", "normal" ou "video".
func PassesAttributes(n crawler.NoteDetail, typeFilter string, minLikes int) bool {
	if typeFilter != "" && typeFilter != "all" && n.NoteType != typeFilter {
		return false
	}
	if n.Likes < minLikes {
		return false
	}
	return true
}

// FilterAttributes aplica PassesAttributes sobre o lote, preservando a ordem.
func FilterAttributes(notes []crawler.NoteDetail, typeFilter string, minLikes int) []crawler.NoteDetail {
	kept := make([]crawler.NoteDetail, 0, len(notes))
	for _, n := range notes {
		if PassesAttributes(n, typeFilter, minLikes) {
			kept = append(kept, n)
		}
	}
	if dropped := len(notes) - len(kept); dropped > 0 {
		log.Printf("[Filter] %d notas reprovadas nos filtros de atributo, %d mantidas.", dropped, len(kept))
	}
	return kept
}
