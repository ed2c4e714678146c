package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	lecturesTable = "lectures"
	usageTable    = "llm_usage_events"
)

var (
	// LecturesColumns holds the columns for the "lectures" table.
	LecturesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "lecture_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "topic", Type: field.TypeString, Default: ""},
		{Name: "schema_version", Type: field.TypeString, Default: ""},
		{Name: "document", Type: field.TypeBytes},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// LecturesTable holds the schema information for the "lectures" table.
	LecturesTable = &schema.Table{
		Name:       lecturesTable,
		Columns:    LecturesColumns,
		PrimaryKey: []*schema.Column{LecturesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "lecture_user_id_lecture_id",
				Unique:  true,
				Columns: []*schema.Column{LecturesColumns[1], LecturesColumns[2]},
			},
		},
	}

	// UsageEventsColumns holds the columns for the "llm_usage_events" table.
	UsageEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "at", Type: field.TypeTime},
		{Name: "purpose", Type: field.TypeString, Default: ""},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "cost_usd", Type: field.TypeFloat64, Default: 0},
	}
	// UsageEventsTable holds the schema information for the "llm_usage_events" table.
	UsageEventsTable = &schema.Table{
		Name:       usageTable,
		Columns:    UsageEventsColumns,
		PrimaryKey: []*schema.Column{UsageEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "usage_event_at",
				Unique:  false,
				Columns: []*schema.Column{UsageEventsColumns[2]},
			},
			{
				Name:    "usage_event_purpose",
				Unique:  false,
				Columns: []*schema.Column{UsageEventsColumns[3]},
			},
		},
	}

	tables = []*schema.Table{
		LecturesTable,
		UsageEventsTable,
	}
)
