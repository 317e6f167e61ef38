package content

// ResourceType identifies one kind of lesson-linked material.
type ResourceType string

const (
	ResourceNotes     ResourceType = "notes"
	ResourceQNA       ResourceType = "qna"
	ResourceWorksheet ResourceType = "worksheet"
	ResourceVideo     ResourceType = "video"
)

// Labels maps resource types to their display names.
var Labels = map[ResourceType]string{
	ResourceNotes:     "Notes",
	ResourceQNA:       "Questions & Answers",
	ResourceWorksheet: "Worksheet",
	ResourceVideo:     "Video Resources",
}

// IsValid reports whether t names a known resource type.
func (t ResourceType) IsValid() bool {
	_, ok := Labels[t]
	return ok
}

// Label returns the display name for a resource type.
func (t ResourceType) Label() string {
	if l, ok := Labels[t]; ok {
		return l
	}
	return string(t)
}

// Item is one content entry attached to a lesson. Title and Body carry
// sanitized HTML produced by the editing UI upstream.
type Item struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata"`
	IsPublished bool              `json:"is_published"`
}

// Hierarchy is the read-only breadcrumb metadata attached to page headers.
// Any field may be empty.
type Hierarchy struct {
	ClassName   string `json:"class_name"`
	SubjectName string `json:"subject_name"`
	UnitName    string `json:"unit_name"`
	SubUnitName string `json:"sub_unit_name"`
	LessonName  string `json:"lesson_name"`
}

// Labels returns the non-empty breadcrumb fields in display order.
func (h Hierarchy) Labels() []string {
	var out []string
	for _, s := range []string{h.ClassName, h.SubjectName, h.UnitName, h.SubUnitName, h.LessonName} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Caller is the invoking identity, consumed as an opaque input from the
// authentication layer.
type Caller struct {
	Role    string `json:"role"`
	CanEdit bool   `json:"can_edit"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Privileged reports whether the caller may download exports directly.
func (c Caller) Privileged() bool {
	return c.Role == "admin" || c.CanEdit
}
