package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"moodreel/internal/services"
	"moodreel/internal/taxonomy"
	"moodreel/internal/validation"
)

//go:embed example.yaml
var exampleSeed []byte

// Example returns the bundled example seed file.
func Example() []byte {
	return append([]byte(nil), exampleSeed...)
}

// File is the seed document.
type File struct {
	MainSentiments []MainSentiment `yaml:"main_sentiments" json:"main_sentiments" validate:"dive"`
	Profiles       []Profile       `yaml:"profiles" json:"profiles" validate:"dive"`
}

type MainSentiment struct {
	Name          string         `yaml:"name" json:"name" validate:"notblank"`
	SubSentiments []SubSentiment `yaml:"sub_sentiments" json:"sub_sentiments" validate:"dive"`
}

type SubSentiment struct {
	Name     string   `yaml:"name" json:"name" validate:"notblank"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type Profile struct {
	Label         string `yaml:"label" json:"label" validate:"notblank"`
	MainSentiment string `yaml:"main_sentiment" json:"main_sentiment" validate:"notblank"`
	DNA           []DNA  `yaml:"dna" json:"dna" validate:"dive"`
}

// DNA names a concept under the profile's lens unless MainSentiment is set.
type DNA struct {
	SubSentiment  string  `yaml:"sub_sentiment" json:"sub_sentiment" validate:"notblank"`
	MainSentiment string  `yaml:"main_sentiment,omitempty" json:"main_sentiment"`
	Weight        float64 `yaml:"weight" json:"weight" validate:"gt=0"`
}

// Parse decodes and validates a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return File{}, services.Wrap(services.ErrValidation, "seed", "parse", "", err)
	}
	if err := validation.Struct(f); err != nil {
		return File{}, err
	}
	return f, nil
}

// ParseFile reads path, or the bundled example when path is empty.
func ParseFile(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(bytes.NewReader(exampleSeed))
	}
	file, err := os.Open(path)
	if err != nil {
		return File{}, services.Wrap(services.ErrConfiguration, "seed", "open", path, err)
	}
	defer file.Close()
	return Parse(file)
}

// Store is the persistence surface used for seeding.
type Store interface {
	EnsureMainSentiment(ctx context.Context, name string) (taxonomy.MainSentiment, error)
	MainSentimentByName(ctx context.Context, name string) (*taxonomy.MainSentiment, error)
	EnsureSubSentiment(ctx context.Context, mainSentimentID int64, name string, keywords []string) (taxonomy.SubSentiment, bool, error)
	FindSubSentiment(ctx context.Context, mainSentimentID int64, name string) (*taxonomy.SubSentiment, error)
	EnsureProfile(ctx context.Context, label string, mainSentimentID int64) (taxonomy.Profile, error)
	AddDNA(ctx context.Context, profileID, subSentimentID int64, weight float64) error
}

// Summary counts what Apply touched.
type Summary struct {
	MainSentiments       int
	SubSentimentsCreated int
	SubSentimentsKept    int
	Profiles             int
	DNARows              int
}

// Apply upserts f into st. Taxonomy is applied before profiles so DNA rows
// can reference concepts defined in the same file.
func Apply(ctx context.Context, st Store, f File) (Summary, error) {
	var summary Summary
	for _, ms := range f.MainSentiments {
		main, err := st.EnsureMainSentiment(ctx, strings.TrimSpace(ms.Name))
		if err != nil {
			return summary, fmt.Errorf("main sentiment %q: %w", ms.Name, err)
		}
		summary.MainSentiments++
		for _, sub := range ms.SubSentiments {
			_, created, err := st.EnsureSubSentiment(ctx, main.ID, strings.TrimSpace(sub.Name), normalizeKeywords(sub.Keywords))
			if err != nil {
				return summary, fmt.Errorf("sub sentiment %q: %w", sub.Name, err)
			}
			if created {
				summary.SubSentimentsCreated++
			} else {
				summary.SubSentimentsKept++
			}
		}
	}

	for _, p := range f.Profiles {
		lens, err := lookupMain(ctx, st, p.MainSentiment)
		if err != nil {
			return summary, fmt.Errorf("profile %q: %w", p.Label, err)
		}
		profile, err := st.EnsureProfile(ctx, strings.TrimSpace(p.Label), lens.ID)
		if err != nil {
			return summary, fmt.Errorf("profile %q: %w", p.Label, err)
		}
		summary.Profiles++
		for _, row := range p.DNA {
			owner := lens
			if strings.TrimSpace(row.MainSentiment) != "" {
				if owner, err = lookupMain(ctx, st, row.MainSentiment); err != nil {
					return summary, fmt.Errorf("profile %q dna %q: %w", p.Label, row.SubSentiment, err)
				}
			}
			sub, err := st.FindSubSentiment(ctx, owner.ID, strings.TrimSpace(row.SubSentiment))
			if err != nil {
				return summary, fmt.Errorf("profile %q dna %q: %w", p.Label, row.SubSentiment, err)
			}
			if sub == nil {
				return summary, services.Wrap(services.ErrValidation, "seed", "dna",
					fmt.Sprintf("profile %q references unknown concept %q under %q", p.Label, row.SubSentiment, owner.Name), nil)
			}
			if err := st.AddDNA(ctx, profile.ID, sub.ID, row.Weight); err != nil {
				return summary, fmt.Errorf("profile %q dna %q: %w", p.Label, row.SubSentiment, err)
			}
			summary.DNARows++
		}
	}
	return summary, nil
}

func lookupMain(ctx context.Context, st Store, name string) (taxonomy.MainSentiment, error) {
	name = strings.TrimSpace(name)
	main, err := st.MainSentimentByName(ctx, name)
	if err != nil {
		return taxonomy.MainSentiment{}, err
	}
	if main == nil {
		return taxonomy.MainSentiment{}, services.Wrap(services.ErrValidation, "seed", "lookup", fmt.Sprintf("unknown main sentiment %q", name), nil)
	}
	return *main, nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
