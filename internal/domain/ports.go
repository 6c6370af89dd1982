package domain

import "context"

// ModelRequest is one turn sent to the generative model: the rendered system
// instruction, the full message history, and the catalog of callable
// operations.
type ModelRequest struct {
	Instruction string
	History     []Message
	Functions   []FunctionDeclaration
}

// ModelReply is what the model answered: either free text or a single
// function call. Both empty means the model returned nothing usable.
type ModelReply struct {
	Text         string
	FunctionCall *FunctionCall
}

// ModelClient defines how the core application talks to the generative model.
type ModelClient interface {
	Generate(ctx context.Context, req ModelRequest) (*ModelReply, error)
}

// FunctionDeclaration describes one callable operation to the model.
type FunctionDeclaration struct {
	Name        string
	Description string
	Parameters  *Schema
}

// Schema is a minimal JSON-schema subset, converted to the model vendor's
// schema type by the LLM adapter.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	Enum        []string
}

// CourseStore defines course persistence. Get returns (nil, nil) for a
// well-formed but absent id; a malformed id wraps ErrInvalidArgument.
type CourseStore interface {
	ListCourses(ctx context.Context) ([]*Course, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	CreateCourse(ctx context.Context, c *Course) error
	UpdateCourse(ctx context.Context, id string, fields map[string]any) (*Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

// TagStore defines tag persistence (collection tag mode only).
type TagStore interface {
	ListTags(ctx context.Context) ([]*Tag, error)
	GetTag(ctx context.Context, id string) (*Tag, error)
	CreateTag(ctx context.Context, t *Tag) error
	UpdateTag(ctx context.Context, id string, fields map[string]any) (*Tag, error)
	DeleteTag(ctx context.Context, id string) error
}

// TimeTableStore defines weekly slot persistence.
type TimeTableStore interface {
	ListTimeTables(ctx context.Context) ([]*TimeTableEntry, error)
	ListTimeTablesJoined(ctx context.Context) ([]*TimeTableJoined, error)
	ListTimeTablesByCourse(ctx context.Context, courseID string) ([]*TimeTableEntry, error)
	CreateTimeTable(ctx context.Context, e *TimeTableEntry) error
	UpdateTimeTable(ctx context.Context, id string, fields map[string]any) (*TimeTableEntry, error)
	DeleteTimeTable(ctx context.Context, id string) error
}

// ScheduleStore defines schedule persistence. Updates are field-level merges
// returning the post-update document.
type ScheduleStore interface {
	ListSchedules(ctx context.Context, f ScheduleFilter) ([]*Schedule, error)
	ListSchedulesJoined(ctx context.Context) ([]*ScheduleJoined, error)
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	CreateSchedule(ctx context.Context, s *Schedule) error
	UpdateSchedule(ctx context.Context, id string, fields map[string]any) (*Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// ConversationStore persists conversations keyed by ConversationID.
type ConversationStore interface {
	// SaveConversation upserts: on insert it stamps owner, createdAt and an
	// empty summary; on every call it overwrites messages and completed and
	// stamps updatedAt.
	SaveConversation(ctx context.Context, conversationID string, messages []Message, completed bool) error
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	// IncompleteConversation returns the most recently updated conversation
	// for the system user with completed=false and status != ignored, or nil.
	IncompleteConversation(ctx context.Context) (*Conversation, error)
	// ListConversations returns the system user's non-ignored conversations
	// with the given completed flag, newest first.
	ListConversations(ctx context.Context, completed bool, limit int) ([]*Conversation, error)
	// ListInteractions returns completed conversations, the system user's or
	// everyone else's, newest first.
	ListInteractions(ctx context.Context, fromOthers bool, limit int) ([]*Conversation, error)
	// IgnoreOpenConversations marks every open conversation ignored and
	// reports how many changed.
	IgnoreOpenConversations(ctx context.Context) (int64, error)
	InsertConversation(ctx context.Context, conv *Conversation) error
}

// RawQuery is the unrestricted passthrough payload: an operation name, a
// target collection, and operation-specific documents passed through
// verbatim. The dispatch layer above is the only enforcement point.
type RawQuery struct {
	Collection string         `json:"collection"`
	Operation  string         `json:"operation"`
	Filter     any            `json:"filter,omitempty"`
	Sort       any            `json:"sort,omitempty"`
	Limit      int64          `json:"limit,omitempty"`
	Pipeline   any            `json:"pipeline,omitempty"`
	Update     any            `json:"update,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// RawQueryExecutor runs passthrough queries and lists collection names.
type RawQueryExecutor interface {
	ExecuteRaw(ctx context.Context, q RawQuery) (any, error)
	CollectionNames(ctx context.Context) ([]string, error)
}
