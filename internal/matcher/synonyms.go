package matcher

import "sort"

// SynonymTable maps a canonical stem to its near-synonyms.
type SynonymTable map[string][]string

// DefaultSynonyms returns a copy of the built-in Portuguese table.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		"angustia":      {"ansiedade", "tensão", "ansioso", "angustiado", "preocupação"},
		"ansiedade":     {"angústia", "tensão", "nervosismo", "preocupação", "inquietação"},
		"vigilancia":    {"monitoramento", "observação", "controle", "supervisão"},
		"conflito":      {"tensão", "disputa", "oposição", "luta", "guerra"},
		"sobrevivencia": {"sobreviver", "resistência", "persistência", "luta"},
		"psicologico":   {"mental", "emocional", "psique", "cognitivo"},
		"complexidade":  {"complexo", "complicado", "intrincado", "sofisticado"},
	}
}

// synonymGroup is one folded stem with its folded near-synonyms.
type synonymGroup struct {
	stem    string
	members []string
	set     map[string]struct{}
}

func (g synonymGroup) has(word string) bool {
	_, ok := g.set[word]
	return ok
}

// compile folds every entry and orders groups by stem so lookups are deterministic.
func (t SynonymTable) compile() []synonymGroup {
	groups := make([]synonymGroup, 0, len(t))
	for stem, syns := range t {
		g := synonymGroup{stem: Fold(stem), set: make(map[string]struct{}, len(syns)+1)}
		for _, word := range append([]string{stem}, syns...) {
			folded := Fold(word)
			if folded == "" {
				continue
			}
			if _, dup := g.set[folded]; dup {
				continue
			}
			g.set[folded] = struct{}{}
			g.members = append(g.members, folded)
		}
		if len(g.members) > 0 {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].stem < groups[j].stem })
	return groups
}
