package models

// ActionItem describes one unit of work inside a template or execution.
// The configuration shape is owned by the action's executor; the engine only
// preserves order and passes it through.
type ActionItem struct {
	ID            string         `json:"id"`
	Type          string         `json:"type" validate:"required"`
	Name          string         `json:"name"`
	Configuration map[string]any `json:"configuration"`
}

// CloneActions deep-copies an action list. Executions copy the template's
// actions at start time so later template edits cannot rewrite the record of
// what actually ran.
func CloneActions(actions []*ActionItem) []*ActionItem {
	if actions == nil {
		return nil
	}

	cloned := make([]*ActionItem, 0, len(actions))

	for _, action := range actions {
		copied := &ActionItem{
			ID:   action.ID,
			Type: action.Type,
			Name: action.Name,
		}

		if action.Configuration != nil {
			copied.Configuration = make(map[string]any, len(action.Configuration))
			for k, v := range action.Configuration {
				copied.Configuration[k] = v
			}
		}

		cloned = append(cloned, copied)
	}

	return cloned
}
