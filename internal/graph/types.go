package graph

// SymbolType is the coarse classification tag carried from the external indexer.
type SymbolType string

const (
	TypeFunction SymbolType = "function"
	TypeStruct   SymbolType = "struct"
	TypeTypedef  SymbolType = "typedef"
	TypeUnknown  SymbolType = "unknown"
)

// RecognizedTypes is the fixed set of tags the oversized-file clustering path
// splits on, in iteration order.
var RecognizedTypes = []SymbolType{TypeFunction, TypeStruct, TypeTypedef}

// NormalizeType maps raw indexer tags (including the single-letter codes
// emitted by ctags-style tools) onto the canonical set.
func NormalizeType(raw string) SymbolType {
	switch raw {
	case "f", "function":
		return TypeFunction
	case "s", "struct":
		return TypeStruct
	case "t", "typedef":
		return TypeTypedef
	}
	return TypeUnknown
}

// Symbol is a node in the reference graph.
// Layer and ClusterID stay nil until the layering and clustering phases
// assign them.
type Symbol struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	FilePath  string     `json:"file_path"`
	Module    string     `json:"module"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Type      SymbolType `json:"symbol_type"`
	Layer     *int       `json:"layer,omitempty"`
	ClusterID *int       `json:"cluster_id,omitempty"`
}

// Edge is a directed reference: From's definition references To.
type Edge struct {
	From int64 `json:"from_node"`
	To   int64 `json:"to_node"`
}
