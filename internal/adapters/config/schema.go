package config

// File represents the structure of the voo.yaml configuration file.
type File struct {
	Cache   CacheSection   `yaml:"cache"`
	Persist PersistSection `yaml:"persist"`
	Trust   TrustSection   `yaml:"trust"`
	Log     string         `yaml:"log"`
}

// CacheSection configures where records live and whether freshness
// comparisons are skipped.
type CacheSection struct {
	Location string `yaml:"location"`
	Only     bool   `yaml:"only"`
}

// PersistSection configures the persistence scheduler.
type PersistSection struct {
	Disabled bool `yaml:"disabled"`
	BudgetMS int  `yaml:"budgetMs"`
}

// TrustSection configures the integrity gate.
type TrustSection struct {
	// Sources are candidate trust source files; the first that exists
	// supplies the integrity token.
	Sources []string `yaml:"sources"`
	// Root is the subtree whose members and resolutions are trusted.
	Root string `yaml:"root"`
}
