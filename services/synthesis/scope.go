package synthesis

// GeneralQuerySentinel is the client-side marker for a question with no
// document context. Kept for compatibility with existing clients.
const GeneralQuerySentinel = "No document provided for context."

// ScopeKind selects how much of the corpus a question may draw on
type ScopeKind int

const (
	// ScopeGeneral answers from conversation context alone, no retrieval
	ScopeGeneral ScopeKind = iota
	// ScopeCorpus retrieves across all of the owner's indexed documents
	ScopeCorpus
	// ScopeDocument retrieves within one named document
	ScopeDocument
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGeneral:
		return "general"
	case ScopeCorpus:
		return "corpus"
	case ScopeDocument:
		return "document"
	default:
		return "unknown"
	}
}

// QueryScope is the resolved retrieval scope of one question
type QueryScope struct {
	Kind     ScopeKind
	Document string // set only for ScopeDocument
}

// GeneralScope skips retrieval entirely
func GeneralScope() QueryScope {
	return QueryScope{Kind: ScopeGeneral}
}

// CorpusScope retrieves across every document the owner has indexed
func CorpusScope() QueryScope {
	return QueryScope{Kind: ScopeCorpus}
}

// DocumentScope retrieves within a single document
func DocumentScope(filename string) QueryScope {
	return QueryScope{Kind: ScopeDocument, Document: filename}
}

// ScopeFromFilter maps a client-supplied document filter to a scope: the
// sentinel or an absent filter means general, anything else names a document
func ScopeFromFilter(filter string) QueryScope {
	if filter == "" || filter == GeneralQuerySentinel {
		return GeneralScope()
	}
	return DocumentScope(filter)
}
