package pagesql

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	pagesTableName = "pages"

	columnID        = "id"
	columnTitle     = "title"
	columnURL       = "url"
	columnContent   = "content"
	columnCreatedAt = "created_at"
	columnEmbedding = "embedding"

	// textSize pushes string columns past varchar limits into text.
	textSize = 2147483647
)

var (
	pagesColumns = []*schema.Column{
		{Name: columnID, Type: field.TypeString, Unique: true},
		{Name: columnTitle, Type: field.TypeString, Size: textSize},
		{Name: columnURL, Type: field.TypeString, Size: textSize},
		{Name: columnContent, Type: field.TypeString, Size: textSize},
		{Name: columnCreatedAt, Type: field.TypeTime},
		{Name: columnEmbedding, Type: field.TypeBytes, Nullable: true},
	}

	pagesTable = &schema.Table{
		Name:       pagesTableName,
		Columns:    pagesColumns,
		PrimaryKey: []*schema.Column{pagesColumns[0]},
	}

	pageColumnNames = []string{columnID, columnTitle, columnURL, columnContent, columnCreatedAt}
)
