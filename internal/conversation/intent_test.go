package conversation

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want Route
	}{
		{"I have chest pain", RouteDiagnose},
		{"I want to book a blood test", RouteBookTests},
		{"can I see a doctor about my blood test results", RouteBookTests},
		{"Book an appointment please", RouteBookDoctor},
		{"hi", RouteFiller},
		{"ok thanks", RouteFiller},
		{"hello, I have a fever", RouteDiagnose},
		{"my knee has been swollen for three days", RouteDiagnose},
		{"I need a scan", RouteBookTests},
		{"sore ears", RouteDiagnose},
		{"back pain", RouteDiagnose},
		{"early", RouteFiller},
		{"background", RouteFiller},
		{"scanty", RouteFiller},
		{"armchair", RouteFiller},
	}
	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestIsSkip(t *testing.T) {
	for _, text := range []string{"skip", "Skip", " no thanks ", "not now"} {
		if !IsSkip(text) {
			t.Fatalf("expected %q to skip", text)
		}
	}
	for _, text := range []string{"9876543210", "skipping breakfast"} {
		if IsSkip(text) {
			t.Fatalf("did not expect %q to skip", text)
		}
	}
}
