package github

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/domain"
)

// loadFieldValues adds every recognizable field value node to issue.
func loadFieldValues(issue *domain.Issue, nodes []map[string]any, logger *zap.Logger) {
	for _, node := range nodes {
		name := fieldName(node)
		if name == "" {
			continue
		}
		value, ok := parseFieldValue(node, logger)
		if !ok {
			continue
		}
		issue.SetField(name, value)
	}
}

func fieldName(node map[string]any) string {
	field, ok := node["field"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := field["name"].(string)
	return name
}

// parseFieldValue inspects the node keys in a fixed order; the first match
// decides the kind. Iteration nodes also carry "title", so they are checked
// before single-select "name".
func parseFieldValue(node map[string]any, logger *zap.Logger) (domain.FieldValue, bool) {
	if v, ok := node["text"]; ok {
		s, _ := v.(string)
		return domain.TextValue(s), true
	}

	if _, ok := node["duration"]; ok {
		_, hasStart := node["startDate"]
		_, hasTitle := node["title"]
		if hasStart && hasTitle {
			title, _ := node["title"].(string)
			start, _ := node["startDate"].(string)
			duration, _ := node["duration"].(float64)
			return domain.IterationValue(title, start, int(duration)), true
		}
	}

	if v, ok := node["number"]; ok {
		n, isNumber := v.(float64)
		if !isNumber {
			logger.Warn(fmt.Sprintf("invalid number value: %v", v))
			return domain.FieldValue{}, false
		}
		return domain.NumberValue(n), true
	}

	if v, ok := node["date"]; ok {
		s, _ := v.(string)
		t, err := time.Parse(domain.DateLayout, s)
		if err != nil {
			logger.Warn(fmt.Sprintf("invalid date value: %q", s))
			return domain.FieldValue{}, false
		}
		return domain.DateValue(t), true
	}

	if v, ok := node["name"]; ok {
		s, _ := v.(string)
		return domain.SingleSelectValue(s), true
	}

	logger.Warn(fmt.Sprintf("unknown field type: %v", node))
	return domain.FieldValue{}, false
}
