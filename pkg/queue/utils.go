package queue

import (
	"fmt"
	"strings"
	"time"
)

// Task represents a unit of work in the queue
type Task struct {
	ID         string                 `json:"id"`
	Type       TaskType               `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	CreatedAt  time.Time              `json:"created_at"`
	Attempts   int                    `json:"attempts"`
	MaxRetries int                    `json:"max_retries"`
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task ID is required")
	}
	if strings.TrimSpace(string(t.Type)) == "" {
		return fmt.Errorf("task type is required")
	}
	if t.Data == nil {
		t.Data = make(map[string]interface{})
	}
	return nil
}

func (t *Task) GetString(key string) string {
	if val, ok := t.Data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetStringMap reads a nested object, which JSON decoding leaves as
// map[string]interface{}.
func (t *Task) GetStringMap(key string) map[string]string {
	out := make(map[string]string)
	switch v := t.Data[key].(type) {
	case map[string]string:
		for k, s := range v {
			out[k] = s
		}
	case map[string]interface{}:
		for k, raw := range v {
			out[k] = fmt.Sprint(raw)
		}
	}
	return out
}

func (t *Task) GetTime(key string) time.Time {
	if val, ok := t.Data[key]; ok {
		switch v := val.(type) {
		case time.Time:
			return v
		case string:
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
