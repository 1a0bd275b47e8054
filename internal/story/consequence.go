package story

import (
	"encoding/json"
	"fmt"
)

type ConsequenceType string

const (
	TypeAddItem              ConsequenceType = "addItem"
	TypeRemoveItem           ConsequenceType = "removeItem"
	TypeSetFlag              ConsequenceType = "setFlag"
	TypeAlterStat            ConsequenceType = "alterStat"
	TypeChangePoliticalValue ConsequenceType = "changePoliticalValue"
)

// Consequence is an effect applied when a choice is taken. The set of
// implementations is closed to this package.
type Consequence interface {
	Type() ConsequenceType
	TargetName() string
	Describe() string
	consequence()
}

type AddItem struct {
	Target      string
	Description string
}

type RemoveItem struct {
	Target      string
	Description string
}

type SetFlag struct {
	Target      string
	Value       bool
	Description string
}

type AlterStat struct {
	Target      string
	Value       float64
	Description string
}

type ChangePoliticalValue struct {
	Target      string
	Value       float64
	Description string
}

func (AddItem) Type() ConsequenceType              { return TypeAddItem }
func (RemoveItem) Type() ConsequenceType           { return TypeRemoveItem }
func (SetFlag) Type() ConsequenceType              { return TypeSetFlag }
func (AlterStat) Type() ConsequenceType            { return TypeAlterStat }
func (ChangePoliticalValue) Type() ConsequenceType { return TypeChangePoliticalValue }

func (c AddItem) TargetName() string              { return c.Target }
func (c RemoveItem) TargetName() string           { return c.Target }
func (c SetFlag) TargetName() string              { return c.Target }
func (c AlterStat) TargetName() string            { return c.Target }
func (c ChangePoliticalValue) TargetName() string { return c.Target }

func (c AddItem) Describe() string              { return c.Description }
func (c RemoveItem) Describe() string           { return c.Description }
func (c SetFlag) Describe() string              { return c.Description }
func (c AlterStat) Describe() string            { return c.Description }
func (c ChangePoliticalValue) Describe() string { return c.Description }

func (AddItem) consequence()              {}
func (RemoveItem) consequence()           {}
func (SetFlag) consequence()              {}
func (AlterStat) consequence()            {}
func (ChangePoliticalValue) consequence() {}

// ConsequenceRecord is the wire and storage form of a consequence.
type ConsequenceRecord struct {
	Type        ConsequenceType `json:"type" yaml:"type"`
	Target      string          `json:"target" yaml:"target"`
	Value       any             `json:"value,omitempty" yaml:"value,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// Record converts a consequence into its wire form.
func Record(c Consequence) ConsequenceRecord {
	rec := ConsequenceRecord{Type: c.Type(), Target: c.TargetName(), Description: c.Describe()}
	switch v := c.(type) {
	case SetFlag:
		rec.Value = v.Value
	case AlterStat:
		rec.Value = v.Value
	case ChangePoliticalValue:
		rec.Value = v.Value
	}
	return rec
}

// FromRecord converts a wire record into a consequence. The boolean result
// is false when the record has an unknown type or a value of the wrong kind.
func FromRecord(rec ConsequenceRecord) (Consequence, bool) {
	switch rec.Type {
	case TypeAddItem:
		return AddItem{Target: rec.Target, Description: rec.Description}, true
	case TypeRemoveItem:
		return RemoveItem{Target: rec.Target, Description: rec.Description}, true
	case TypeSetFlag:
		value, ok := rec.Value.(bool)
		if !ok {
			return nil, false
		}
		return SetFlag{Target: rec.Target, Value: value, Description: rec.Description}, true
	case TypeAlterStat:
		value, ok := numeric(rec.Value)
		if !ok {
			return nil, false
		}
		return AlterStat{Target: rec.Target, Value: value, Description: rec.Description}, true
	case TypeChangePoliticalValue:
		value, ok := numeric(rec.Value)
		if !ok {
			return nil, false
		}
		return ChangePoliticalValue{Target: rec.Target, Value: value, Description: rec.Description}, true
	default:
		return nil, false
	}
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Consequences is an ordered consequence list with a lenient JSON decoding
// that drops malformed entries.
type Consequences []Consequence

func (cs Consequences) MarshalJSON() ([]byte, error) {
	records := make([]ConsequenceRecord, 0, len(cs))
	for _, c := range cs {
		records = append(records, Record(c))
	}
	return json.Marshal(records)
}

func (cs *Consequences) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding consequences: %w", err)
	}
	out := make(Consequences, 0, len(raw))
	for _, item := range raw {
		var rec ConsequenceRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			continue
		}
		if c, ok := FromRecord(rec); ok {
			out = append(out, c)
		}
	}
	*cs = out
	return nil
}

// ConsequencesFromRecords converts wire records, dropping malformed ones.
func ConsequencesFromRecords(records []ConsequenceRecord) Consequences {
	out := make(Consequences, 0, len(records))
	for _, rec := range records {
		if c, ok := FromRecord(rec); ok {
			out = append(out, c)
		}
	}
	return out
}
