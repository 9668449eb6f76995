package shared

import "testing"

func TestConvertDateToInt(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  int
	}{
		{name: "full date", input: "2021-03-19", want: 20210319},
		{name: "year and month", input: "1999-12", want: 19991200},
		{name: "year only", input: "2020", want: 20200000},
		{name: "single digit parts", input: "2020-5-7", want: 20200507},
		{name: "surrounding whitespace", input: " 2001-01-01 ", want: 20010101},
		{name: "empty", input: "", want: 0},
		{name: "garbage", input: "not-a-date", want: 0},
		{name: "short year", input: "99-01-01", want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertDateToInt(tt.input); got != tt.want {
				t.Errorf("ConvertDateToInt(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
