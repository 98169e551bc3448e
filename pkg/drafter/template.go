package drafter

import (
	"context"
	"fmt"
	"strings"

	"github.com/carelog/carelog_backend/internal/model"
)

// Template is the no-API drafter: a fixed supportive paragraph shaped by the
// note's scores. Used in development and tests, and as the fallback when no
// API key is configured.
type Template struct{}

func NewTemplate() *Template { return &Template{} }

func (Template) Draft(_ context.Context, note model.Note) (string, error) {
	var parts []string
	parts = append(parts, "Thank you for sharing how you are doing.")

	switch {
	case note.Pain >= 8:
		parts = append(parts, "You reported a high pain level; your care team has been made aware and will follow up with you.")
	case note.Pain >= 5:
		parts = append(parts, "Your pain sounds uncomfortable. Keep noting when it gets better or worse so your care team can spot patterns.")
	default:
		parts = append(parts, "It is good to see your pain staying manageable.")
	}

	if note.Mood <= 3 {
		parts = append(parts, "Low days are hard. Consider mentioning how you have been feeling in your next conversation with your care team.")
	}
	if note.Appetite <= 3 {
		parts = append(parts, "Try to keep eating small regular meals even when your appetite is low.")
	}

	parts = append(parts, fmt.Sprintf("Your entry from %s has been shared with your care team.", note.CreatedAt.Format("January 2")))
	return strings.Join(parts, " "), nil
}
