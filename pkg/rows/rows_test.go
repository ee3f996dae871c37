package rows

import (
	"strings"
	"sync"
	"testing"
)

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     [][]string
	}{
		{
			name:     "two rows",
			fragment: `<tr><td>1</td><td>alice</td></tr><tr><td>2</td><td>bob</td></tr>`,
			want:     [][]string{{"1", "alice"}, {"2", "bob"}},
		},
		{
			name: "whitespace and nested markup collapsed",
			fragment: `
				<tr>
					<td>  42 </td>
					<td><span class="badge">active</span>
					    <em>since</em> 2024</td>
				</tr>`,
			want: [][]string{{"42", "active since 2024"}},
		},
		{
			name:     "header cells count as cells",
			fragment: `<tr><th>id</th><td>7</td></tr>`,
			want:     [][]string{{"id", "7"}},
		},
		{
			name:     "empty row",
			fragment: `<tr></tr>`,
			want:     [][]string{{}},
		},
		{
			name:     "no rows",
			fragment: ``,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFragment(strings.NewReader(tt.fragment))
			if err != nil {
				t.Fatalf("ParseFragment error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, row := range got {
				if strings.Join(row.Cells, "|") != strings.Join(tt.want[i], "|") {
					t.Errorf("row %d = %q, want %q", i, row.Cells, tt.want[i])
				}
			}
		})
	}
}

func TestCollection(t *testing.T) {
	c := NewCollection()

	c.AppendRows([]Row{{Cells: []string{"a"}}, {Cells: []string{"b"}}})
	c.AppendRows([]Row{{Cells: []string{"c"}}})

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	slice := c.Slice(1, 10)
	if len(slice) != 2 || slice[0].Cells[0] != "b" || slice[1].Cells[0] != "c" {
		t.Errorf("Slice(1, 10) = %+v", slice)
	}

	if got := c.Slice(5, 2); got != nil {
		t.Errorf("Slice(5, 2) = %+v, want nil", got)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	if rows := c.Rows(); len(rows) != 0 {
		t.Errorf("Rows() after Clear = %+v", rows)
	}
}

func TestCollection_Concurrent(t *testing.T) {
	c := NewCollection()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.AppendRows([]Row{{Cells: []string{"x"}}})
				_ = c.Len()
			}
		}()
	}
	wg.Wait()

	if c.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", c.Len())
	}
}
