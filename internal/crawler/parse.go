package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BaseURL resolve hrefs relativos vindos das páginas do XHS.
const BaseURL = "https://www.xiaohongshu.com"

// EncodeKeyword codifica a keyword para a URL de busca. O site espera o
// percent-encoding aplicado duas vezes (o encoding do encoding).
func EncodeKeyword(keyword string) string {
	return url.QueryEscape(url.QueryEscape(keyword))
}

// BuildSearchURL monta a URL de busca completa. sortBy aceita
// "general" (综合), "popularity" (最热) e "time" (最新).
func BuildSearchURL(keywordEncoded, sortBy string) string {
	sortValue := map[string]string{
		"general":    "general",
		"popularity": "popularity_descending",
		"time":       "time_descending",
	}[sortBy]
	if sortValue == "" {
		sortValue = "general"
	}
	return fmt.Sprintf(
		"%s/search_result?keyword=%s&source=web_search_result_notes&sort=%s",
		BaseURL, keywordEncoded, sortValue,
	)
}

// ParseCount converte textos de contagem como "1.2万" ou "1234" em inteiro.
// Valores não reconhecidos viram 0, nunca erro.
func ParseCount(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	switch {
	case strings.Contains(text, "万"):
		v, err := strconv.ParseFloat(strings.ReplaceAll(text, "万", ""), 64)
		if err != nil {
			return 0
		}
		return int(v * 10000)
	case strings.Contains(text, "亿"):
		v, err := strconv.ParseFloat(strings.ReplaceAll(text, "亿", ""), 64)
		if err != nil {
			return 0
		}
		return int(v * 100000000)
	default:
		v, err := strconv.Atoi(text)
		if err != nil {
			return 0
		}
		return v
	}
}

// ParseTimestamp interpreta um epoch numérico vindo do __INITIAL_STATE__.
// O XHS guarda milissegundos; valores acima de 1e12 são divididos por 1000.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if ts > 1e12 {
		ts = ts / 1000
	}
	return time.Unix(ts, 0), true
}

var (
	reFullDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	reMonthDay = regexp.MustCompile(`^(\d{2}-\d{2})`)
	reDaysAgo  = regexp.MustCompile(`(\d+)\s*天前`)
	reHoursAgo = regexp.MustCompile(`(\d+)\s*小时前`)
	reMinsAgo  = regexp.MustCompile(`(\d+)\s*分钟前`)
)

// ParsePublishTime interpreta as strings de data exibidas na página de
// detalhe: "2024-01-15", "01-15", "3天前", "5小时前", "x分钟前", "刚刚",
// "昨天 14:30". Retorna false quando o formato não é reconhecido.
func ParsePublishTime(timeStr string) (time.Time, bool) {
	return parsePublishTimeAt(timeStr, time.Now())
}

func parsePublishTimeAt(timeStr string, now time.Time) (time.Time, bool) {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return time.Time{}, false
	}

	if reFullDate.MatchString(timeStr) {
		t, err := time.ParseInLocation("2006-01-02", timeStr[:10], now.Location())
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	// Só mês-dia ("01-15"), possivelmente seguido de localização ("01-15 新加坡")
	if m := reMonthDay.FindStringSubmatch(timeStr); m != nil {
		t, err := time.ParseInLocation("2006-01-02", fmt.Sprintf("%d-%s", now.Year(), m[1]), now.Location())
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	if m := reDaysAgo.FindStringSubmatch(timeStr); m != nil {
		days, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -days), true
	}
	if m := reHoursAgo.FindStringSubmatch(timeStr); m != nil {
		hours, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(hours) * time.Hour), true
	}
	if m := reMinsAgo.FindStringSubmatch(timeStr); m != nil {
		mins, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(mins) * time.Minute), true
	}
	if strings.Contains(timeStr, "刚刚") {
		return now, true
	}
	if strings.Contains(timeStr, "昨天") {
		return now.AddDate(0, 0, -1), true
	}

	return time.Time{}, false
}

// ResolveURL transforma um href relativo do XHS em URL absoluta.
func ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return BaseURL + href
	}
	return href
}

// ExtractNoteID extrai o ID da nota do último segmento do path da URL,
// descartando a query string. Ex: "/explore/65a1b2c3?xsec_token=..." → "65a1b2c3".
func ExtractNoteID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	path := strings.SplitN(rawURL, "?", 2)[0]
	path = strings.TrimRight(path, "/")
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// NormalizeImageURL normaliza URLs protocol-relative ("//cdn...") e sem
// esquema para https absoluto.
func NormalizeImageURL(u string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	if !strings.HasPrefix(u, "http") {
		return "https://" + u
	}
	return u
}

var reHashtag = regexp.MustCompile(`#(\S+?)#`)

// ExtractHashtags acha hashtags no formato #tag# dentro do texto da nota,
// preservando a ordem de aparição.
func ExtractHashtags(content string) []string {
	var tags []string
	for _, m := range reHashtag.FindAllStringSubmatch(content, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

// appendUnique adiciona os valores ainda não presentes, mantendo a ordem.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

var reInvalidFilename = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename limpa uma string para uso como nome de arquivo/pasta.
func SanitizeFilename(name string, maxLen int) string {
	name = reInvalidFilename.ReplaceAllString(name, "_")
	name = strings.Trim(strings.TrimSpace(name), ".")
	runes := []rune(name)
	if len(runes) > maxLen {
		name = string(runes[:maxLen])
	}
	if name == "" {
		return "unnamed"
	}
	return name
}
