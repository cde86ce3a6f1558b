package domain

// Source is one configured page the pipeline fetches and extracts from every run.
// Type selects the extraction strategy (homepage, contact, feed, or any generic type).
type Source struct {
	URL  string `json:"url" yaml:"url"`
	Type string `json:"type" yaml:"type"`
}
