package expression

// Kind groups collection methods by what they do to the collection
type Kind string

const (
	// KindRead returns documents or counts without changing them
	KindRead Kind = "read"
	// KindAggregate runs a pipeline or map-reduce over the collection
	KindAggregate Kind = "aggregate"
	// KindWrite modifies documents
	KindWrite Kind = "write"
	// KindAdmin manages indexes or the collection itself
	KindAdmin Kind = "admin"
	// KindUnknown is any method not in the catalogue
	KindUnknown Kind = "unknown"
)

// View is the way a result of a method is best rendered
type View string

const (
	// ViewList renders a sequence of documents
	ViewList View = "list"
	// ViewKeyValue renders a single acknowledgement or status document as key/value pairs
	ViewKeyValue View = "keyValue"
	// ViewRaw renders the result as-is
	ViewRaw View = "raw"
)

var methodKinds = map[string]Kind{
	"find":                   KindRead,
	"findOne":                KindRead,
	"count":                  KindRead,
	"countDocuments":         KindRead,
	"estimatedDocumentCount": KindRead,
	"distinct":               KindRead,

	"aggregate": KindAggregate,
	"mapReduce": KindAggregate,

	"insert":            KindWrite,
	"insertOne":         KindWrite,
	"insertMany":        KindWrite,
	"update":            KindWrite,
	"updateOne":         KindWrite,
	"updateMany":        KindWrite,
	"replaceOne":        KindWrite,
	"remove":            KindWrite,
	"deleteOne":         KindWrite,
	"deleteMany":        KindWrite,
	"findOneAndUpdate":  KindWrite,
	"findOneAndReplace": KindWrite,
	"findOneAndDelete":  KindWrite,
	"bulkWrite":         KindWrite,
	"save":              KindWrite,

	"createIndex":      KindAdmin,
	"createIndexes":    KindAdmin,
	"dropIndex":        KindAdmin,
	"dropIndexes":      KindAdmin,
	"getIndexes":       KindAdmin,
	"drop":             KindAdmin,
	"renameCollection": KindAdmin,
	"stats":            KindAdmin,
}

// KindOf classifies a collection method name. Matching is case-sensitive,
// as in the shell.
func KindOf(method string) Kind {
	if kind, ok := methodKinds[method]; ok {
		return kind
	}
	return KindUnknown
}

// ViewFor picks the result view for a method kind
func ViewFor(kind Kind) View {
	switch kind {
	case KindRead, KindAggregate:
		return ViewList
	case KindWrite, KindAdmin:
		return ViewKeyValue
	default:
		return ViewRaw
	}
}

// IsWrite reports whether the method modifies documents or collection metadata
func (k Kind) IsWrite() bool {
	return k == KindWrite || k == KindAdmin
}
