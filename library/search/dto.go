package search

// SearchResult is a single translated hit returned by an Engine.
// Title and Summary may carry the upstream HTML text decorations.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
}

// ResultList is the JSON envelope used by the web and MCP layers.
type ResultList struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"result_list"`
}
