package clifmt

import "testing"

func TestNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	cases := []struct {
		got, want string
	}{
		{Success("sent"), "sent"},
		{Status("blocked"), "blocked"},
		{Field("title", "Docs"), "title: Docs"},
		{Headerf("%d sent", 2), "2 sent"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("got %q, want %q", tc.got, tc.want)
		}
	}
}
