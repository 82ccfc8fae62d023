package models

// ReminderStep is one step of a reminder cadence: an offset from the invoice
// due date and the template to send at that point.
type ReminderStep struct {
	OffsetDays int    `json:"offset_days"`
	TemplateID string `json:"template_id"`
}

// ReminderStrategy is an immutable, tenant-independent cadence definition.
// Strategies are catalog data: adding a cadence means adding an entry here,
// not branching in the scheduler.
type ReminderStrategy struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Steps []ReminderStep `json:"steps"`
}

// DefaultStrategyID is used for invoices with no explicit cadence assignment.
const DefaultStrategyID = "gentle-3-7-14"

var reminderStrategies = map[string]ReminderStrategy{
	"gentle-3-7-14": {
		ID:   "gentle-3-7-14",
		Name: "Gentle escalation",
		Steps: []ReminderStep{
			{OffsetDays: 3, TemplateID: "payment_reminder_gentle"},
			{OffsetDays: 7, TemplateID: "payment_reminder_firm"},
			{OffsetDays: 14, TemplateID: "payment_reminder_final"},
		},
	},
	"firm-1-5-10": {
		ID:   "firm-1-5-10",
		Name: "Firm escalation",
		Steps: []ReminderStep{
			{OffsetDays: 1, TemplateID: "payment_reminder_firm"},
			{OffsetDays: 5, TemplateID: "payment_reminder_firm"},
			{OffsetDays: 10, TemplateID: "payment_reminder_final"},
		},
	},
	"single-7": {
		ID:   "single-7",
		Name: "Single nudge",
		Steps: []ReminderStep{
			{OffsetDays: 7, TemplateID: "payment_reminder_gentle"},
		},
	},
}

// StrategyByID looks up a cadence in the catalog.
func StrategyByID(id string) (ReminderStrategy, bool) {
	s, ok := reminderStrategies[id]
	return s, ok
}

// StrategyIDs lists the catalog for API consumers.
func StrategyIDs() []string {
	ids := make([]string, 0, len(reminderStrategies))
	for id := range reminderStrategies {
		ids = append(ids, id)
	}
	return ids
}
