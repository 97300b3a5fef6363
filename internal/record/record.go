package record

// PageResult is one normalized page of parsing-service output.
type PageResult struct {
	Number int           `json:"page_number"` // 1-based
	Text   string        `json:"raw_text"`    // Page markdown/text, "" when the service sent none
	Fields []FieldRecord `json:"fields"`
}

// FieldRecord is a name/value pair lifted from a page's field list.
// Nil means the attribute was missing in the source.
type FieldRecord struct {
	Name  *string `json:"name"`
	Value *string `json:"value"`
}

// Cell is one column/value pair within a Row.
type Cell struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Row is an ordered mapping from column header to cell value.
type Row []Cell

// Get returns the value stored under column.
func (r Row) Get(column string) (string, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns the cell values in column order.
func (r Row) Values() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Value
	}
	return out
}

// TableRecord is one logical table recovered from a page's table markup.
type TableRecord struct {
	ID         string   `json:"table_id"` // page_<p>_table_<n>
	SourcePage int      `json:"source_page"`
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
}

// FormRecord is a form field tagged with its page.
type FormRecord struct {
	FieldName  *string `json:"field_name"`
	FieldValue *string `json:"field_value"`
	SourcePage int     `json:"source_page"`
}

// CheckboxRecord is a labeled checkbox state found in page text.
type CheckboxRecord struct {
	Label      string `json:"label"`
	Checked    bool   `json:"checked"`
	SourcePage int    `json:"source_page"`
}

// CorpusLine is one deduplicated line of question-answering context.
type CorpusLine struct {
	Text       string `json:"text"`
	SourcePage int    `json:"source_page"`
}

// Document identifies one stored upload.
type Document struct {
	ID          string `json:"doc_id"`
	Name        string `json:"name"`
	Path        string `json:"-"`
	ContentHash string `json:"content_hash"`
	Size        int64  `json:"size"`
}

// Result is the full extraction output for one document.
type Result struct {
	Pages      []PageResult     `json:"pages"`
	Tables     []TableRecord    `json:"tables"`
	Forms      []FormRecord     `json:"forms"`
	Checkboxes []CheckboxRecord `json:"checkboxes"`
	Corpus     []CorpusLine     `json:"corpus"`

	DroppedTableBlocks int `json:"dropped_table_blocks"`
}

// Str returns a pointer to s, for building FieldRecords.
func Str(s string) *string {
	return &s
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Pages:              make([]PageResult, len(r.Pages)),
		Tables:             make([]TableRecord, len(r.Tables)),
		Forms:              make([]FormRecord, len(r.Forms)),
		Checkboxes:         append([]CheckboxRecord{}, r.Checkboxes...),
		Corpus:             append([]CorpusLine{}, r.Corpus...),
		DroppedTableBlocks: r.DroppedTableBlocks,
	}
	for i, p := range r.Pages {
		out.Pages[i] = p.Clone()
	}
	for i, t := range r.Tables {
		out.Tables[i] = t.Clone()
	}
	for i, f := range r.Forms {
		out.Forms[i] = FormRecord{FieldName: clonePtr(f.FieldName), FieldValue: clonePtr(f.FieldValue), SourcePage: f.SourcePage}
	}
	return out
}

// Clone returns a deep copy of p.
func (p PageResult) Clone() PageResult {
	fields := make([]FieldRecord, len(p.Fields))
	for i, f := range p.Fields {
		fields[i] = FieldRecord{Name: clonePtr(f.Name), Value: clonePtr(f.Value)}
	}
	return PageResult{Number: p.Number, Text: p.Text, Fields: fields}
}

// Clone returns a deep copy of t.
func (t TableRecord) Clone() TableRecord {
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append(Row{}, r...)
	}
	return TableRecord{
		ID:         t.ID,
		SourcePage: t.SourcePage,
		Columns:    append([]string{}, t.Columns...),
		Rows:       rows,
	}
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return Str(*s)
}
