package export

// RowKind tells renderers how to style a row.
type RowKind int

const (
	RowData RowKind = iota
	RowHeader
	RowTitle
	RowBlank
)

// Row is one spreadsheet row. Cells may hold formulas; Display, when set, is
// what renderers that cannot evaluate formulas should print instead.
type Row struct {
	Kind    RowKind
	Cells   []string
	Display []string
}

// Sheet is a grid addressed by 1-based row numbers, matching spreadsheet
// references such as D7.
type Sheet struct {
	Title string
	Rows  []Row
}

// NextRow returns the row number the next Append will occupy.
func (s *Sheet) NextRow() int {
	return len(s.Rows) + 1
}

// Append adds a row and returns its row number.
func (s *Sheet) Append(kind RowKind, cells ...string) int {
	s.Rows = append(s.Rows, Row{Kind: kind, Cells: cells})
	return len(s.Rows)
}

// AppendDisplay adds a row with an alternate rendering for non-formula outputs.
func (s *Sheet) AppendDisplay(cells, display []string) int {
	s.Rows = append(s.Rows, Row{Kind: RowData, Cells: cells, Display: display})
	return len(s.Rows)
}

// Width returns the widest row's cell count.
func (s *Sheet) Width() int {
	width := 0
	for _, r := range s.Rows {
		if len(r.Cells) > width {
			width = len(r.Cells)
		}
	}
	return width
}
