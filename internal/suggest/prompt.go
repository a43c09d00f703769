package suggest

import (
	"fmt"
	"sort"
	"strings"

	"moodreel/internal/taxonomy"
)

const (
	systemPrompt       = "Você é um especialista em análise de filmes, focado em aspectos emocionais. Avalie filmes para jornadas emocionais específicas e responda apenas com JSON válido."
	reasonSystemPrompt = "Você escreve justificativas curtas de recomendação de filmes para jornadas emocionais. Responda apenas com JSON válido."
	maxKeywordsShown   = 3
	maxLibraryShown    = 5
)

// BuildPrompt renders the user prompt for a candidate set request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	movie := req.Movie

	fmt.Fprintf(&b, "Avalie o filme %q para a jornada %q.\n\n", movie.Title, req.Profile.Label)
	b.WriteString("CONTEXTO DO FILME:\n")
	if movie.Year > 0 {
		fmt.Fprintf(&b, "- Título: %s (%d)\n", movie.Title, movie.Year)
	} else {
		fmt.Fprintf(&b, "- Título: %s\n", movie.Title)
	}
	fmt.Fprintf(&b, "- Sinopse: %s\n", strings.TrimSpace(movie.Synopsis))
	fmt.Fprintf(&b, "- Gêneros: %s\n", strings.Join(movie.Genres, ", "))
	fmt.Fprintf(&b, "- Keywords: %s\n\n", strings.Join(movie.Keywords, ", "))

	fmt.Fprintf(&b, "LENTE DE ANÁLISE: %s (ID: %d)\n\n", req.Lens.Name, req.Lens.ID)

	b.WriteString("LISTA OFICIAL DA JORNADA (conceitos esperados, use os nomes exatamente como listados):\n")
	expected := append([]taxonomy.DNARow(nil), req.Expected...)
	sort.SliceStable(expected, func(i, j int) bool { return expected[i].Weight > expected[j].Weight })
	if len(expected) == 0 {
		b.WriteString("Nenhum conceito oficial configurado.\n")
	}
	for _, row := range expected {
		fmt.Fprintf(&b, "- %s (ID: %d, Peso: %.2f)\n", row.SubSentiment, row.SubSentimentID, row.Weight)
	}

	b.WriteString("\nBIBLIOTECA DA LENTE (opcional, conceitos fora da lista oficial):\n")
	official := make(map[int64]struct{}, len(expected))
	for _, row := range expected {
		official[row.SubSentimentID] = struct{}{}
	}
	shown := 0
	for _, sub := range req.Library {
		if _, ok := official[sub.ID]; ok {
			continue
		}
		if shown == maxLibraryShown {
			break
		}
		fmt.Fprintf(&b, "- %s (ID: %d)%s\n", sub.Name, sub.ID, keywordSuffix(sub.Keywords))
		shown++
	}
	if shown == 0 {
		b.WriteString("Nenhum outro conceito disponível.\n")
	}

	maxMatches := req.MaxMatches
	if maxMatches <= 0 {
		maxMatches = 10
	}
	fmt.Fprintf(&b, `
INSTRUÇÕES:
1. Priorize a lista oficial. Não invente nomes quando um conceito equivalente já existe.
2. Relevância de 0.0 a 1.0 indicando a força do conceito no filme.
3. Explicações com 2 a 3 frases, no máximo 300 caracteres.
4. No máximo %d matches.
5. Use "OFFICIAL" para conceitos da lista oficial e "SUGGESTION" para os demais; use id 0 para conceitos novos.

Responda no formato {"matches":[{"id":123,"name":"...","relevance":0.9,"explanation":"...","type":"OFFICIAL"}]}
`, maxMatches)
	return b.String()
}

// BuildReasonPrompt renders the user prompt for a narrative reason.
func BuildReasonPrompt(req ReasonRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filme: %s\nJornada: %s\nPontuação: %.3f\n", req.Movie.Title, req.Profile.Label, req.Score)
	fmt.Fprintf(&b, "Sinopse: %s\n", strings.TrimSpace(req.Movie.Synopsis))
	names := make([]string, 0, len(req.Matched))
	for name := range req.Matched {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("Conceitos presentes:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s (%.2f)\n", name, req.Matched[name])
	}
	b.WriteString("\nEscreva em uma frase por que este filme acompanha esta jornada. Responda {\"reason\":\"...\"}")
	return b.String()
}

func keywordSuffix(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	if len(keywords) > maxKeywordsShown {
		keywords = keywords[:maxKeywordsShown]
	}
	return " (keywords: " + strings.Join(keywords, ", ") + ")"
}
