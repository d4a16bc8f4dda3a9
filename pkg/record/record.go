package record

import "time"

// Kind distinguishes the two record variants stored in the knowledge base.
type Kind string

const (
	KindArticle Kind = "kb_article"
	KindTicket  Kind = "ticket"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindArticle || k == KindTicket
}

// Raw-input field names for KB articles, matching the upstream export headers.
const (
	FieldArticleID    = "KB Article #"
	FieldVersion      = "Version"
	FieldCategory     = "Category"
	FieldTitle        = "Title"
	FieldIntroduction = "Introduction"
	FieldInstructions = "Instructions"
	FieldKeywords     = "Keywords"
)

// Raw-input field names for tickets.
const (
	FieldTrackingIndex             = "tracking_index"
	FieldDescription               = "Description"
	FieldCloseNotes                = "Close Notes"
	FieldSummary                   = "summarize_ticket"
	FieldTicketQuality             = "ticket_quality"
	FieldUserProficiency           = "user_proficiency_level"
	FieldPotentialImpact           = "potential_impact"
	FieldResolutionAppropriateness = "resolution_appropriateness"
	FieldPotentialRootCause        = "potential_root_cause"
)

// Optional ticket explanation field names, copied through verbatim when present.
const (
	FieldSummaryExplanation                   = "summarize_ticket_explanation"
	FieldTicketQualityExplanation             = "ticket_quality_explanation"
	FieldUserProficiencyExplanation           = "user_proficiency_level_explanation"
	FieldPotentialImpactExplanation           = "potential_impact_explanation"
	FieldResolutionAppropriatenessExplanation = "resolution_appropriateness_explanation"
	FieldPotentialRootCauseExplanation        = "potential_root_cause_explanation"
)

// ArticleFields lists the required raw keys for a KB article.
var ArticleFields = []string{
	FieldArticleID,
	FieldVersion,
	FieldCategory,
	FieldTitle,
	FieldIntroduction,
	FieldInstructions,
	FieldKeywords,
}

// TicketFields lists the required raw keys for a ticket.
var TicketFields = []string{
	FieldTrackingIndex,
	FieldDescription,
	FieldCloseNotes,
	FieldSummary,
	FieldTicketQuality,
	FieldUserProficiency,
	FieldPotentialImpact,
	FieldResolutionAppropriateness,
	FieldPotentialRootCause,
}

// TicketExplanationFields lists the optional raw keys for a ticket.
var TicketExplanationFields = []string{
	FieldSummaryExplanation,
	FieldTicketQualityExplanation,
	FieldUserProficiencyExplanation,
	FieldPotentialImpactExplanation,
	FieldResolutionAppropriatenessExplanation,
	FieldPotentialRootCauseExplanation,
}

// Record is the persisted unit of data: a KB article or a ticket, plus its
// embedding and write timestamps. The struct is flat so every storage backend
// can persist it as a single document/row; fields that do not apply to the
// record's kind stay empty.
type Record struct {
	ID   string `json:"id" bson:"_id"`
	Kind Kind   `json:"kind" bson:"kind"`

	// Article fields. Version is a decimal string ("1.0", "1.1", ...);
	// updates bump it by 0.1 while the ID stays stable.
	Version      string `json:"version,omitempty" bson:"version,omitempty"`
	Category     string `json:"category,omitempty" bson:"category,omitempty"`
	Title        string `json:"title,omitempty" bson:"title,omitempty"`
	Introduction string `json:"introduction,omitempty" bson:"introduction,omitempty"`
	Instructions string `json:"instructions,omitempty" bson:"instructions,omitempty"`
	Keywords     string `json:"keywords,omitempty" bson:"keywords,omitempty"`

	// Ticket fields. The ID of a ticket embeds a timestamp, so re-ingesting
	// the same tracking index always creates a new record.
	TrackingIndex             string `json:"tracking_index,omitempty" bson:"tracking_index,omitempty"`
	Description               string `json:"description,omitempty" bson:"description,omitempty"`
	CloseNotes                string `json:"close_notes,omitempty" bson:"close_notes,omitempty"`
	Summary                   string `json:"summary,omitempty" bson:"summary,omitempty"`
	TicketQuality             string `json:"ticket_quality,omitempty" bson:"ticket_quality,omitempty"`
	UserProficiency           string `json:"user_proficiency,omitempty" bson:"user_proficiency,omitempty"`
	PotentialImpact           string `json:"potential_impact,omitempty" bson:"potential_impact,omitempty"`
	ResolutionAppropriateness string `json:"resolution_appropriateness,omitempty" bson:"resolution_appropriateness,omitempty"`
	PotentialRootCause        string `json:"potential_root_cause,omitempty" bson:"potential_root_cause,omitempty"`

	// Explanations holds the optional free-text explanation fields, keyed by
	// their raw field name. Absent keys were absent in the input.
	Explanations map[string]string `json:"explanations,omitempty" bson:"explanations,omitempty"`

	Embedding []float32 `json:"embedding,omitempty" bson:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Excerpt returns the short text used to present the record in search results:
// the title for an article, the description for a ticket.
func (r *Record) Excerpt() string {
	if r.Kind == KindTicket {
		return r.Description
	}
	return r.Title
}
