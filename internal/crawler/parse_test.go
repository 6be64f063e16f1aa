package crawler

import (
	"strings"
	"testing"
	"time"
)

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1.2万", 12000},
		{"3", 3},
		{"  345 ", 345},
		{"2亿", 200000000},
		{"", 0},
		{"点赞", 0},
		{"1.5万+", 0}, // sufixo não numérico depois do 万 não é reconhecido
	}
	for _, c := range cases {
		if got := ParseCount(c.in); got != c.want {
			t.Errorf("ParseCount(%q) = %d, esperava %d", c.in, got, c.want)
		}
	}
}

func TestParseTimestampMilissegundosESegundos(t *testing.T) {
	ms, ok := ParseTimestamp("1700000000000")
	if !ok {
		t.Fatal("timestamp em milissegundos devia ser reconhecido")
	}
	s, ok := ParseTimestamp("1700000000")
	if !ok {
		t.Fatal("timestamp em segundos devia ser reconhecido")
	}
	if !ms.Equal(s) {
		t.Errorf("ms e segundos deviam dar o mesmo instante: %v != %v", ms, s)
	}

	if _, ok := ParseTimestamp("abc"); ok {
		t.Error("texto não numérico não devia virar timestamp")
	}
}

func TestParsePublishTimeFormatos(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

	got, ok := parsePublishTimeAt("2024-01-15", now)
	if !ok || got.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("data completa: got %v ok=%v", got, ok)
	}

	got, ok = parsePublishTimeAt("01-15 新加坡", now)
	if !ok || got.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("mês-dia devia assumir o ano corrente: got %v ok=%v", got, ok)
	}

	got, ok = parsePublishTimeAt("3天前", now)
	if !ok || got.Day() != 12 {
		t.Errorf("3天前 devia dar dia 12: got %v ok=%v", got, ok)
	}

	got, ok = parsePublishTimeAt("5小时前", now)
	if !ok || got.Hour() != 7 {
		t.Errorf("5小时前 devia dar hora 7: got %v ok=%v", got, ok)
	}

	got, ok = parsePublishTimeAt("昨天 14:30", now)
	if !ok || got.Day() != 14 {
		t.Errorf("昨天 devia dar dia 14: got %v ok=%v", got, ok)
	}

	if _, ok := parsePublishTimeAt("formato desconhecido", now); ok {
		t.Error("formato desconhecido não devia ser reconhecido")
	}
}

func TestExtractNoteID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.xiaohongshu.com/explore/65a1b2c3?xsec_token=AB", "65a1b2c3"},
		{"/explore/65a1b2c3/", "65a1b2c3"},
		{"/search_result/xyz", "xyz"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractNoteID(c.in); got != c.want {
			t.Errorf("ExtractNoteID(%q) = %q, esperava %q", c.in, got, c.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	if got := ResolveURL("/explore/abc"); got != BaseURL+"/explore/abc" {
		t.Errorf("href relativo devia virar absoluto: %q", got)
	}
	if got := ResolveURL("https://outro.com/x"); got != "https://outro.com/x" {
		t.Errorf("URL absoluta não devia mudar: %q", got)
	}
}

func TestExtractHashtags(t *testing.T) {
	tags := ExtractHashtags("hoje fui no #café# e depois no #parque# de novo #café#")
	if len(tags) != 3 {
		t.Fatalf("esperava 3 matches, veio %d: %v", len(tags), tags)
	}
	if tags[0] != "café" || tags[1] != "parque" {
		t.Errorf("ordem de aparição errada: %v", tags)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(`a/b\c:d?e`, 50); got != "a_b_c_d_e" {
		t.Errorf("caracteres inválidos deviam virar _: %q", got)
	}
	if got := SanitizeFilename("", 50); got != "unnamed" {
		t.Errorf("nome vazio devia virar unnamed: %q", got)
	}
	if got := SanitizeFilename("漂亮的咖啡店推荐", 4); got != "漂亮的咖" {
		t.Errorf("truncagem devia contar runas, não bytes: %q", got)
	}
}

func TestBuildSearchURL(t *testing.T) {
	u := BuildSearchURL(EncodeKeyword("咖啡"), "time")
	if want := "sort=time_descending"; !strings.Contains(u, want) {
		t.Errorf("URL devia conter %q: %s", want, u)
	}
	u = BuildSearchURL(EncodeKeyword("x"), "qualquer")
	if want := "sort=general"; !strings.Contains(u, want) {
		t.Errorf("sort desconhecido devia cair em general: %s", u)
	}
}
