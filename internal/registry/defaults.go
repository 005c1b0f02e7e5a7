package registry

import "github.com/slashdash/sabe/internal/parser"

// Default returns the built-in command table.
//
// Each command lists its canonical verb first at weight 100; the remaining
// synonyms carry the weights the resolver scores against. High and Critical
// commands carry an uppercase confirm word.
func Default() *Registry {
	return MustNew([]*Spec{
		{
			ID:          "analyze-data",
			Description: "Analyze a dataset and report findings",
			Risk:        RiskLow,
			Synonyms: []Synonym{
				{"analyze", 100}, {"inspect", 95}, {"examine", 92},
				{"investigate", 90}, {"figure", 95}, {"review", 85},
				{"check", 80}, {"study", 78}, {"evaluate", 75},
			},
			InputKinds:    []parser.InputKind{parser.KindFile, parser.KindURL, parser.KindData},
			RequiresInput: true,
			BaseTokens:    8000,
			Steps:         3,
		},
		{
			ID:          "summarize-doc",
			Description: "Summarize a document",
			Risk:        RiskLow,
			Synonyms: []Synonym{
				{"summarize", 100}, {"digest", 95}, {"condense", 92},
				{"brief", 90}, {"abstract", 88}, {"outline", 85}, {"recap", 82},
			},
			InputKinds:    []parser.InputKind{parser.KindFile, parser.KindURL},
			RequiresInput: true,
			BaseTokens:    6000,
			Steps:         2,
		},
		{
			ID:          "convert-file",
			Description: "Convert a file to another format",
			Risk:        RiskMedium,
			Synonyms: []Synonym{
				{"convert", 100}, {"transform", 95}, {"change", 88},
				{"translate", 85}, {"switch", 80}, {"modify", 75},
			},
			InputKinds:    []parser.InputKind{parser.KindFile, parser.KindDirectory},
			RequiresInput: true,
			BaseTokens:    4000,
			Steps:         2,
		},
		{
			ID:          "generate-site",
			Description: "Generate a static site from a workspace",
			Risk:        RiskMedium,
			Synonyms: []Synonym{
				{"generate", 100}, {"create", 98}, {"build", 95},
				{"make", 90}, {"produce", 85}, {"construct", 82},
			},
			InputKinds:    []parser.InputKind{parser.KindWorkspace, parser.KindDirectory},
			RequiresInput: false,
			BaseTokens:    30000,
			Steps:         6,
		},
		{
			ID:          "deploy-site",
			Description: "Deploy a generated site to its target",
			Risk:        RiskHigh,
			Synonyms: []Synonym{
				{"deploy", 100}, {"publish", 95}, {"release", 92}, {"launch", 90},
			},
			InputKinds:    []parser.InputKind{parser.KindSite, parser.KindDirectory},
			RequiresInput: false,
			ConfirmWord:   "DEPLOY",
			BaseTokens:    12000,
			Steps:         4,
		},
		{
			ID:          "delete-file",
			Description: "Delete a file (irreversible on disk)",
			Risk:        RiskCritical,
			Synonyms: []Synonym{
				{"delete", 100}, {"remove", 95}, {"erase", 92}, {"destroy", 90},
			},
			InputKinds:    []parser.InputKind{parser.KindFile, parser.KindDirectory},
			RequiresInput: true,
			ConfirmWord:   "DELETE",
			BaseTokens:    500,
			Steps:         1,
		},
		{
			ID:          "list-files",
			Description: "List files in a directory or workspace",
			Risk:        RiskLow,
			Synonyms: []Synonym{
				{"list", 100}, {"show", 95}, {"display", 92}, {"enumerate", 88},
			},
			InputKinds:    []parser.InputKind{parser.KindDirectory, parser.KindWorkspace},
			RequiresInput: false,
			BaseTokens:    300,
			Steps:         1,
		},
		{
			ID:          "search-content",
			Description: "Search content across the workspace",
			Risk:        RiskLow,
			Synonyms: []Synonym{
				{"search", 100}, {"find", 98}, {"locate", 95},
				{"lookup", 92}, {"query", 88},
			},
			InputKinds:    []parser.InputKind{parser.KindDirectory, parser.KindWorkspace, parser.KindFile},
			RequiresInput: false,
			BaseTokens:    2000,
			Steps:         2,
		},
	})
}
