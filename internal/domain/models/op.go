package models

type OpKind string

const (
	OpPost            OpKind = "post"
	OpShowRecord      OpKind = "show_record"
	OpDeleteRecord    OpKind = "delete_record"
	OpEditTitle       OpKind = "edit_title"
	OpEditURL         OpKind = "edit_url"
	OpReassignAuthor  OpKind = "reassign_author"
	OpAddComment      OpKind = "add_comment"
	OpMutateTags      OpKind = "mutate_tags"
	OpShowComment     OpKind = "show_comment"
	OpDeleteComment   OpKind = "delete_comment"
	OpReassignComment OpKind = "reassign_comment"
	OpEditComment     OpKind = "edit_comment"
)

// TagChange is one parsed tag token: +tag adds, -tag removes, bare tag adds.
type TagChange struct {
	Tag    string
	Remove bool
}

// Op is the single parse result for a ledger command line. Record and Comment
// are 0-based storage indices (1-based in the wire grammar).
type Op struct {
	Kind    OpKind
	Record  int
	Comment int

	// URL/Title/Tags are set for OpPost; Text carries the payload of the
	// edit verbs (new title, new URL, comment text, reassigned nick).
	URL        string
	Title      string
	Tags       []string
	Text       string
	TagChanges []TagChange
}
