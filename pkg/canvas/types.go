package canvas

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AssignmentGroup is a weighted grading category.
type AssignmentGroup struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Position    int             `json:"position"`
	GroupWeight float64         `json:"group_weight"`
	Rules       json.RawMessage `json:"rules,omitempty"`
}

// Assignment is one assignment definition inside a group.
type Assignment struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	PointsPossible     *float64 `json:"points_possible"`
	OmitFromFinalGrade bool     `json:"omit_from_final_grade"`
	AssignmentGroupID  int64    `json:"assignment_group_id"`
}

// User is a roster entry.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name"`
	ShortName    string `json:"short_name"`
}

// Submission is one student's submission record for an assignment.
type Submission struct {
	ID            int64  `json:"id"`
	AssignmentID  int64  `json:"assignment_id"`
	UserID        int64  `json:"user_id"`
	Score         Score  `json:"score"`
	WorkflowState string `json:"workflow_state"`
}

// Score is a submission score. Valid is false when Canvas sends null, omits the
// field, or sends something that is not a number.
type Score struct {
	Value float64
	Valid bool
}

// UnmarshalJSON never fails: anything that is not numeric decodes as an invalid score.
func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		raw = strings.TrimSpace(str)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*s = Score{Value: v, Valid: true}
	return nil
}

// MarshalJSON writes null for invalid scores.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Rules are the drop rules attached to an assignment group. A nil count means
// the rule is absent.
type Rules struct {
	DropLowest  *int
	DropHighest *int
	NeverDrop   []int64
}

// DecodeRules reads an assignment group's rules object field by field. A field
// that is absent or malformed is left unset; a malformed object yields no rules.
func DecodeRules(raw json.RawMessage) Rules {
	var rules Rules
	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &fields) != nil {
		return rules
	}

	if v, ok := fields["drop_lowest"]; ok {
		rules.DropLowest = decodeCount(v)
	}
	if v, ok := fields["drop_highest"]; ok {
		rules.DropHighest = decodeCount(v)
	}
	if v, ok := fields["never_drop"]; ok {
		rules.NeverDrop = decodeIDs(v)
	}
	return rules
}

func decodeCount(raw json.RawMessage) *int {
	id, ok := decodeNumber(raw)
	if !ok {
		return nil
	}
	n := int(id)
	return &n
}

func decodeIDs(raw json.RawMessage) []int64 {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	ids := make([]int64, 0, len(elems))
	for _, elem := range elems {
		if id, ok := decodeNumber(elem); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// decodeNumber accepts integral JSON numbers and numeric strings.
func decodeNumber(raw json.RawMessage) (int64, bool) {
	var s Score
	_ = s.UnmarshalJSON(raw)
	if !s.Valid || s.Value != math.Trunc(s.Value) {
		return 0, false
	}
	return int64(s.Value), true
}
